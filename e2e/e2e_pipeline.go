//go:build ignore

// e2e_pipeline exercises the segmentation and chunking modules in a single
// run and writes structured results to data/e2e_pipeline.log.
// Run from the project root:
//
//	go run e2e/e2e_pipeline.go
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zh-ai-labs/zh-seg-nlp/chunker"
	"github.com/zh-ai-labs/zh-seg-nlp/segment"
)

// ---------- constants ----------

const (
	logPath      = "data/e2e_pipeline.log"
	moduleCount  = 2
	maxDetailLen = 200
	concWorkers  = 8
	concIter     = 100
	separator    = "=========================================================="
	suiteCount   = 6
	goldenDir    = "data/golden"
	truncMax     = 80
)

// ---------- test corpus ----------

const textEnglish = `Hello world. How are you? I am fine!`

const textChinese = `你好世界。你好吗？我很好！等等……让我想想。还有其他事情要处理。`

const textMixed = `Mr. Smith visited Beijing. 他参观了故宫博物院。The U.S.A. delegation arrived today. 会谈在下午举行。`

const textAbbrev = `Dr. Johnson met Mr. Smith near the U.S.A. embassy. Mrs. Brown joined them later.`

const textForChunker = `第一段的第一句话在这里。第一段的第二句话在这里。第一段的第三句话在这里。

第二段的第一句话在这里。第二段的第二句话在这里。第二段的第三句话在这里。

第三段的第一句话在这里。第三段的第二句话在这里。第三段的第三句话在这里。`

// ---------- types ----------

type testResult struct {
	name     string
	module   string
	passed   bool
	duration time.Duration
	detail   string
}

type moduleReport struct {
	name     string
	tests    int
	passed   int
	failed   int
	duration time.Duration
}

// ---------- helpers ----------

func pass(module, name string, start time.Time) testResult {
	return testResult{name: name, module: module, passed: true, duration: time.Since(start)}
}

func fail(module, name, detail string, start time.Time) testResult {
	return testResult{name: name, module: module, passed: false, duration: time.Since(start), detail: truncate(detail, maxDetailLen)}
}

func truncate(s string, maxRunes int) string {
	n := 0
	for i := range s {
		n++
		if n > maxRunes {
			return s[:i] + "..."
		}
	}
	return s
}

func safeRun(module, name string, fn func() testResult) (r testResult) {
	defer func() {
		if p := recover(); p != nil {
			r = fail(module, name, fmt.Sprintf("PANIC: %v", p), time.Now())
		}
	}()
	return fn()
}

// spanOffsetsOK checks the byte-offset invariant for one span against the
// input it was produced from, tolerating the abbreviation-guard whitespace
// collapse.
func spanOffsetsOK(input string, s segment.Sentence) bool {
	if s.Start < 0 || s.End > len(input) || s.Start > s.End {
		return false
	}
	if s.End-s.Start != len(s.Text) {
		return false
	}
	orig := input[s.Start:s.End]
	for i := range len(orig) {
		if orig[i] == s.Text[i] {
			continue
		}
		if s.Text[i] != ' ' {
			return false
		}
		switch orig[i] {
		case ' ', '\t', '\n', '\f', '\r':
		default:
			return false
		}
	}
	return true
}

// ---------- test suites ----------

func testSegment() []testResult {
	const mod = "segment"
	var results []testResult

	results = append(results, safeRun(mod, "split_english_basic", func() testResult {
		start := time.Now()
		got := segment.Split(textEnglish, segment.Advanced)
		want := []string{"Hello world.", "How are you?", "I am fine!"}
		if len(got) != len(want) {
			return fail(mod, "split_english_basic", fmt.Sprintf("got %d sentences, want %d", len(got), len(want)), start)
		}
		for i := range want {
			if got[i] != want[i] {
				return fail(mod, "split_english_basic", fmt.Sprintf("sentence %d: %q != %q", i, got[i], want[i]), start)
			}
		}
		return pass(mod, "split_english_basic", start)
	}))

	results = append(results, safeRun(mod, "split_chinese_basic", func() testResult {
		start := time.Now()
		got := segment.Split(textChinese, segment.Advanced)
		if len(got) != 6 {
			return fail(mod, "split_chinese_basic", fmt.Sprintf("got %d sentences, want 6", len(got)), start)
		}
		if got[0] != "你好世界。" || got[4] != "让我想想。" {
			return fail(mod, "split_chinese_basic", fmt.Sprintf("unexpected sentences: %q", got), start)
		}
		return pass(mod, "split_chinese_basic", start)
	}))

	results = append(results, safeRun(mod, "abbreviations_protected", func() testResult {
		start := time.Now()
		got := segment.Split(textAbbrev, segment.Advanced)
		if len(got) != 2 {
			return fail(mod, "abbreviations_protected", fmt.Sprintf("got %d sentences, want 2: %q", len(got), got), start)
		}
		if !strings.HasPrefix(got[0], "Dr. Johnson met Mr. Smith") {
			return fail(mod, "abbreviations_protected", fmt.Sprintf("title split inside: %q", got[0]), start)
		}
		return pass(mod, "abbreviations_protected", start)
	}))

	results = append(results, safeRun(mod, "advanced_never_merges_chunks", func() testResult {
		start := time.Now()
		for _, text := range []string{textEnglish, textChinese, textMixed, textAbbrev} {
			adv := segment.Split(text, segment.Advanced)
			naive := segment.Split(text, segment.Naive)
			if len(adv) < len(naive) {
				return fail(mod, "advanced_never_merges_chunks",
					fmt.Sprintf("%d advanced < %d naive for %s", len(adv), len(naive), truncate(text, truncMax)), start)
			}
		}
		return pass(mod, "advanced_never_merges_chunks", start)
	}))

	results = append(results, safeRun(mod, "degenerate_inputs", func() testResult {
		start := time.Now()
		for _, text := range []string{"", "   \t\n  ", "\xff\xfe"} {
			if got := segment.Split(text, segment.Advanced); got != nil {
				return fail(mod, "degenerate_inputs", fmt.Sprintf("Split(%q) = %q, want nil", text, got), start)
			}
			if got := segment.Spans(text, segment.Advanced); got != nil {
				return fail(mod, "degenerate_inputs", fmt.Sprintf("Spans(%q) = %v, want nil", text, got), start)
			}
		}
		return pass(mod, "degenerate_inputs", start)
	}))

	results = append(results, safeRun(mod, "should_chunk_threshold", func() testResult {
		start := time.Now()
		if segment.ShouldChunk(strings.Repeat("中", 120)) {
			return fail(mod, "should_chunk_threshold", "120 runes flagged as oversized", start)
		}
		if !segment.ShouldChunk(strings.Repeat("中", 121)) {
			return fail(mod, "should_chunk_threshold", "121 runes not flagged as oversized", start)
		}
		return pass(mod, "should_chunk_threshold", start)
	}))

	return results
}

func testSpans() []testResult {
	const mod = "spans"
	var results []testResult

	results = append(results, safeRun(mod, "offset_invariant", func() testResult {
		start := time.Now()
		for _, text := range []string{textEnglish, textChinese, textMixed, textAbbrev, textForChunker} {
			for _, mode := range []segment.Mode{segment.Advanced, segment.Naive} {
				for _, s := range segment.Spans(text, mode) {
					if !spanOffsetsOK(text, s) {
						return fail(mod, "offset_invariant",
							fmt.Sprintf("mode %v: %s against %s", mode, s, truncate(text, truncMax)), start)
					}
				}
			}
		}
		return pass(mod, "offset_invariant", start)
	}))

	results = append(results, safeRun(mod, "offsets_non_decreasing", func() testResult {
		start := time.Now()
		for _, text := range []string{textChinese, textMixed, textForChunker} {
			prev := -1
			for _, s := range segment.Spans(text, segment.Advanced) {
				if s.Start < prev {
					return fail(mod, "offsets_non_decreasing",
						fmt.Sprintf("Start %d after %d in %s", s.Start, prev, truncate(text, truncMax)), start)
				}
				prev = s.Start
			}
		}
		return pass(mod, "offsets_non_decreasing", start)
	}))

	results = append(results, safeRun(mod, "spans_match_split_without_newlines", func() testResult {
		start := time.Now()
		for _, text := range []string{textEnglish, textChinese, textMixed} {
			spans := segment.Spans(text, segment.Advanced)
			split := segment.Split(text, segment.Advanced)
			if len(spans) != len(split) {
				return fail(mod, "spans_match_split_without_newlines",
					fmt.Sprintf("%d spans vs %d sentences", len(spans), len(split)), start)
			}
			for i := range spans {
				if spans[i].Text != split[i] {
					return fail(mod, "spans_match_split_without_newlines",
						fmt.Sprintf("sentence %d: %q != %q", i, spans[i].Text, split[i]), start)
				}
			}
		}
		return pass(mod, "spans_match_split_without_newlines", start)
	}))

	return results
}

func testChunker() []testResult {
	const mod = "chunker"
	var results []testResult

	results = append(results, safeRun(mod, "by_size_invariants", func() testResult {
		start := time.Now()
		chunks := chunker.BySize(textForChunker, 40, 10)
		if len(chunks) == 0 {
			return fail(mod, "by_size_invariants", "no chunks produced", start)
		}
		for _, c := range chunks {
			if textForChunker[c.Start:c.End] != c.Text {
				return fail(mod, "by_size_invariants", fmt.Sprintf("offset invariant broken: %s", c), start)
			}
		}
		return pass(mod, "by_size_invariants", start)
	}))

	results = append(results, safeRun(mod, "by_sentence_grouping", func() testResult {
		start := time.Now()
		chunks := chunker.BySentence(textForChunker, 30, 0)
		if len(chunks) < 2 {
			return fail(mod, "by_sentence_grouping", fmt.Sprintf("got %d chunks, want >= 2", len(chunks)), start)
		}
		for _, c := range chunks {
			if textForChunker[c.Start:c.End] != c.Text {
				return fail(mod, "by_sentence_grouping", fmt.Sprintf("offset invariant broken: %s", c), start)
			}
		}
		return pass(mod, "by_sentence_grouping", start)
	}))

	results = append(results, safeRun(mod, "recursive_paragraphs_first", func() testResult {
		start := time.Now()
		chunks := chunker.Recursive(textForChunker, 40, 0)
		if len(chunks) != 3 {
			return fail(mod, "recursive_paragraphs_first", fmt.Sprintf("got %d chunks, want 3", len(chunks)), start)
		}
		for i, c := range chunks {
			if c.Index != i || textForChunker[c.Start:c.End] != c.Text {
				return fail(mod, "recursive_paragraphs_first", fmt.Sprintf("chunk %d invalid: %s", i, c), start)
			}
		}
		return pass(mod, "recursive_paragraphs_first", start)
	}))

	results = append(results, safeRun(mod, "chunks_convenience", func() testResult {
		start := time.Now()
		got := chunker.Chunks(textChinese)
		if len(got) != 1 {
			return fail(mod, "chunks_convenience", fmt.Sprintf("got %d chunks, want 1", len(got)), start)
		}
		return pass(mod, "chunks_convenience", start)
	}))

	return results
}

func testPipeline() []testResult {
	const mod = "pipeline"
	var results []testResult

	results = append(results, safeRun(mod, "segment_then_chunk", func() testResult {
		start := time.Now()
		spans := segment.Spans(textForChunker, segment.Advanced)
		if len(spans) != 9 {
			return fail(mod, "segment_then_chunk", fmt.Sprintf("got %d sentences, want 9", len(spans)), start)
		}
		chunks := chunker.BySentence(textForChunker, 30, 0)
		// Every chunk must begin at a sentence start.
		starts := make(map[int]bool, len(spans))
		for _, s := range spans {
			starts[s.Start] = true
		}
		for _, c := range chunks {
			if !starts[c.Start] {
				return fail(mod, "segment_then_chunk",
					fmt.Sprintf("chunk start %d is not a sentence start", c.Start), start)
			}
		}
		return pass(mod, "segment_then_chunk", start)
	}))

	results = append(results, safeRun(mod, "oversized_sentence_chunked", func() testResult {
		start := time.Now()
		long := strings.Repeat("这是一个没有任何标点的超长句子", 20)
		if !segment.ShouldChunk(long) {
			return fail(mod, "oversized_sentence_chunked", "long text not flagged for chunking", start)
		}
		chunks := chunker.Recursive(long, 120, 0)
		if len(chunks) < 2 {
			return fail(mod, "oversized_sentence_chunked", fmt.Sprintf("got %d chunks, want >= 2", len(chunks)), start)
		}
		return pass(mod, "oversized_sentence_chunked", start)
	}))

	return results
}

func testConcurrent() []testResult {
	const mod = "concurrent"
	var results []testResult

	results = append(results, safeRun(mod, "all_modules_8_goroutines_x100", func() testResult {
		start := time.Now()
		var panics atomic.Int64
		var wg sync.WaitGroup

		for range concWorkers {
			wg.Go(func() {
				for range concIter {
					func() {
						defer func() {
							if p := recover(); p != nil {
								panics.Add(1)
							}
						}()
						segment.Split(textMixed, segment.Advanced)
						segment.Split(textChinese, segment.Naive)
						segment.Spans(textAbbrev, segment.Advanced)
						segment.Sentences(textEnglish)
						segment.ShouldChunk(textForChunker)
						chunker.BySize(textForChunker, 100, 10)
						chunker.BySentence(textForChunker, 60, 10)
						chunker.Recursive(textForChunker, 60, 10)
						chunker.Chunks(textChinese)
					}()
				}
			})
		}
		wg.Wait()

		if n := panics.Load(); n > 0 {
			return fail(mod, "all_modules_8_goroutines_x100",
				fmt.Sprintf("%d panics detected across goroutines", n), start)
		}
		return pass(mod, "all_modules_8_goroutines_x100", start)
	}))

	return results
}

// ---------- corpus helpers ----------

// goldenEntry represents one entry from a golden JSON test file.
type goldenEntry struct {
	Input string `json:"input"`
}

// loadGoldenCorpus reads all golden JSON files and returns concatenated input texts.
func loadGoldenCorpus() (string, int, error) {
	files, err := filepath.Glob(filepath.Join(goldenDir, "*.json"))
	if err != nil {
		return "", 0, err
	}
	if len(files) == 0 {
		return "", 0, fmt.Errorf("no golden files found in %s", goldenDir)
	}

	var texts []string
	for _, f := range files {
		raw, err := os.ReadFile(f)
		if err != nil {
			return "", 0, fmt.Errorf("reading %s: %w", f, err)
		}
		var entries []goldenEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			continue // skip non-array golden files
		}
		for _, e := range entries {
			if e.Input != "" {
				texts = append(texts, e.Input)
			}
		}
	}
	return strings.Join(texts, "\n\n"), len(texts), nil
}

func testCorpus() []testResult {
	const mod = "corpus"
	var results []testResult

	corpus, entries, err := loadGoldenCorpus()
	if err != nil {
		results = append(results, fail(mod, "load_golden_corpus", err.Error(), time.Now()))
		return results
	}
	results = append(results, pass(mod, fmt.Sprintf("load_golden_corpus_%d_entries", entries), time.Now()))

	results = append(results, safeRun(mod, "segment_full_corpus", func() testResult {
		start := time.Now()
		spans := segment.Spans(corpus, segment.Advanced)
		if len(spans) == 0 {
			return fail(mod, "segment_full_corpus", "Spans returned 0 sentences", start)
		}
		prev := -1
		for _, s := range spans {
			if !spanOffsetsOK(corpus, s) {
				return fail(mod, "segment_full_corpus", fmt.Sprintf("offset invariant broken: %s", s), start)
			}
			if s.Start < prev {
				return fail(mod, "segment_full_corpus", fmt.Sprintf("ordering broken at %s", s), start)
			}
			prev = s.Start
		}
		return pass(mod, "segment_full_corpus", start)
	}))

	results = append(results, safeRun(mod, "chunker_full_corpus", func() testResult {
		start := time.Now()
		chunks := chunker.Recursive(corpus, 512, 50)
		if len(chunks) == 0 {
			return fail(mod, "chunker_full_corpus", "Recursive returned 0 chunks", start)
		}
		for _, c := range chunks {
			if c.Start < 0 || c.End > len(corpus) || c.Start > c.End {
				return fail(mod, "chunker_full_corpus",
					fmt.Sprintf("invalid offset [%d:%d]", c.Start, c.End), start)
			}
			if corpus[c.Start:c.End] != c.Text {
				return fail(mod, "chunker_full_corpus",
					fmt.Sprintf("offset invariant broken at chunk %d", c.Index), start)
			}
		}
		return pass(mod, "chunker_full_corpus", start)
	}))

	return results
}

// ---------- orchestration ----------

func runAllSuites() []testResult {
	suites := []func() []testResult{
		testSegment,
		testSpans,
		testChunker,
		testPipeline,
		testConcurrent,
		testCorpus,
	}

	var all []testResult
	for _, suite := range suites {
		all = append(all, suite()...)
	}
	return all
}

func buildReports(results []testResult) []moduleReport {
	order := make(map[string]int)
	var reports []moduleReport

	for _, r := range results {
		idx, exists := order[r.module]
		if !exists {
			idx = len(reports)
			order[r.module] = idx
			reports = append(reports, moduleReport{name: r.module})
		}
		reports[idx].tests++
		reports[idx].duration += r.duration
		if r.passed {
			reports[idx].passed++
		} else {
			reports[idx].failed++
		}
	}
	return reports
}

func writeLog(path string, results []testResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)

	now := time.Now().UTC().Format(time.RFC3339)
	goVer := runtime.Version()
	platform := runtime.GOOS + "/" + runtime.GOARCH

	fmt.Fprintln(bw, separator)
	fmt.Fprintln(bw, "  zh-seg-nlp E2E Pipeline Test")
	fmt.Fprintf(bw, "  Timestamp: %s\n", now)
	fmt.Fprintf(bw, "  Go: %s  OS: %s\n", goVer, platform)
	fmt.Fprintf(bw, "  Modules: %d\n", moduleCount)
	fmt.Fprintln(bw, separator)
	fmt.Fprintln(bw)

	reports := buildReports(results)
	var totalDuration time.Duration
	for _, rep := range reports {
		totalDuration += rep.duration
	}

	// Per-module sections.
	for _, rep := range reports {
		fmt.Fprintf(bw, "[%s] %d tests | %d passed | %d failed | %s\n",
			rep.name, rep.tests, rep.passed, rep.failed, rep.duration.Round(time.Microsecond))
		for _, r := range results {
			if r.module != rep.name {
				continue
			}
			status := "PASS"
			if !r.passed {
				status = "FAIL"
			}
			fmt.Fprintf(bw, "  %-6s %-45s %s\n", status, r.name, r.duration.Round(time.Microsecond))
		}
		fmt.Fprintln(bw)
	}

	// Failures section.
	var failures []testResult
	for _, r := range results {
		if !r.passed {
			failures = append(failures, r)
		}
	}
	if len(failures) > 0 {
		fmt.Fprintln(bw, "--- FAILURES ---")
		for _, r := range failures {
			fmt.Fprintf(bw, "  FAIL  [%s] %-40s %s\n", r.module, r.name, r.duration.Round(time.Microsecond))
			if r.detail != "" {
				for line := range strings.SplitSeq(r.detail, "\n") {
					fmt.Fprintf(bw, "        %s\n", line)
				}
			}
		}
		fmt.Fprintln(bw)
	}

	// Summary.
	totalTests := len(results)
	totalPassed := 0
	totalFailed := 0
	for _, r := range results {
		if r.passed {
			totalPassed++
		} else {
			totalFailed++
		}
	}

	fmt.Fprintln(bw, separator)
	fmt.Fprintf(bw, "  SUMMARY: %d tests | %d passed | %d failed | %s\n",
		totalTests, totalPassed, totalFailed, totalDuration.Round(time.Microsecond))
	fmt.Fprintln(bw, separator)

	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(results []testResult) {
	reports := buildReports(results)
	totalPassed := 0
	totalFailed := 0
	var totalDuration time.Duration

	for _, rep := range reports {
		totalPassed += rep.passed
		totalFailed += rep.failed
		totalDuration += rep.duration

		status := "OK"
		if rep.failed > 0 {
			status = "FAIL"
		}
		log.Printf("  %-12s %d/%d %s", rep.name, rep.passed, rep.tests, status)
	}

	log.Printf("")
	log.Printf("  %d tests | %d passed | %d failed | %s",
		len(results), totalPassed, totalFailed, totalDuration.Round(time.Microsecond))

	for _, r := range results {
		if !r.passed {
			log.Printf("  FAIL [%s] %s: %s", r.module, r.name, r.detail)
		}
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("[e2e] ")

	log.Printf("starting E2E pipeline test (%d modules, %d suites)", moduleCount, suiteCount)
	totalStart := time.Now()

	results := runAllSuites()

	log.Printf("completed in %s", time.Since(totalStart).Round(time.Microsecond))
	log.Printf("")

	printSummary(results)

	if err := writeLog(logPath, results); err != nil {
		log.Fatalf("cannot write log: %v", err)
	}
	log.Printf("log written to %s", logPath)

	for _, r := range results {
		if !r.passed {
			os.Exit(1)
		}
	}
}

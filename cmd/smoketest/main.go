// Command smoketest runs the segmentation and chunking pipelines over a
// directory of .txt files and reports invariant violations and corpus
// statistics. It is a diagnostic tool for validating behavior against real
// corpora, not part of the library API.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zh-ai-labs/zh-seg-nlp/chunker"
	"github.com/zh-ai-labs/zh-seg-nlp/segment"
)

const (
	chunkSize      = 4 << 20 // 4 MB per read chunk
	maxWorkers     = 4
	expectedArgs   = 2
	bytesToMBShift = 20
)

type fileRatio struct {
	path       string
	sentences  int
	paragraphs int
	ratio      float64
}

type Stats struct {
	mu               sync.Mutex
	filesScanned     int
	totalBytes       int64
	spanOK           int
	spanFail         int
	chunkOK          int
	chunkFail        int
	sentenceOutliers int
	cjkFiles         int
	totalSentences   int
	totalNaive       int
	oversized        int
	fileRatios       []fileRatio
}

type fileState struct {
	path           string
	totalBytes     int64
	spanFailed     bool
	spanFailLogged bool
	chunkFailed    bool
	chunkLogged    bool
	sentences      int
	naive          int
	oversized      int
	paragraphs     int
	hasCJK         bool
}

func main() {
	if len(os.Args) != expectedArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s <directory>\n", os.Args[0])
		os.Exit(1)
	}

	dirPath := os.Args[1]
	stats := &Stats{}

	var filePaths []string
	err := filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".txt") {
			return nil
		}
		filePaths = append(filePaths, path)
		return nil
	})

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error walking directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Found %d files to process\n", len(filePaths))
	start := time.Now()

	semaphore := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for _, path := range filePaths {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(p string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			processFile(p, stats)
		}(path)
	}

	wg.Wait()

	flagSentenceOutliers(stats)

	fmt.Fprintf(os.Stderr, "\nCompleted in %s\n\n", time.Since(start).Round(time.Millisecond))
	printStats(stats)
}

func processFile(path string, stats *Stats) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", path, err)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error stat %s: %v\n", path, err)
		return
	}
	fileSize := info.Size()
	fmt.Fprintf(os.Stderr, "START %s (%d MB)\n", path, fileSize>>bytesToMBShift)
	fileStart := time.Now()

	state := &fileState{path: path}

	buf := make([]byte, chunkSize)
	var leftover []byte

	for {
		n, err := f.Read(buf)
		if n > 0 {
			leftover = append(leftover, buf[:n]...)
			chunk := leftover

			if err == nil {
				if idx := bytes.LastIndexByte(chunk, '\n'); idx > 0 {
					leftover = make([]byte, len(chunk)-idx-1)
					copy(leftover, chunk[idx+1:])
					chunk = chunk[:idx+1]
				} else {
					leftover = chunk
					continue
				}
			} else {
				leftover = nil
			}

			state.processChunk(chunk)
		}

		if err != nil {
			break
		}
	}

	if len(leftover) > 0 {
		state.processChunk(leftover)
	}

	state.paragraphs++

	fmt.Fprintf(os.Stderr, "DONE  %s in %s (%d MB processed)\n",
		filepath.Base(path), time.Since(fileStart).Round(time.Millisecond), state.totalBytes>>bytesToMBShift)

	mergeFileState(state, stats)
}

func (fs *fileState) processChunk(chunk []byte) {
	text := string(chunk)
	fs.totalBytes += int64(len(chunk))

	spans := segment.Spans(text, segment.Advanced)
	fs.sentences += len(spans)

	prevStart := -1
	for _, s := range spans {
		if segment.ShouldChunk(s.Text) {
			fs.oversized++
		}
		if fs.spanFailed {
			continue
		}
		if s.Start < prevStart || s.Start < 0 || s.End > len(text) || s.End-s.Start != len(s.Text) {
			fs.spanFailed = true
			if !fs.spanFailLogged {
				fmt.Fprintf(os.Stderr, "SPAN_FAIL: %s: bad offsets %s\n", fs.path, s)
				fs.spanFailLogged = true
			}
			continue
		}
		prevStart = s.Start
		if orig := text[s.Start:s.End]; !restoredEqual(orig, s.Text) {
			fs.spanFailed = true
			if !fs.spanFailLogged {
				logSpanDivergence(fs.path, orig, s.Text)
				fs.spanFailLogged = true
			}
		}
	}

	fs.naive += len(segment.Spans(text, segment.Naive))

	if !fs.chunkFailed {
		for i, c := range chunker.Recursive(text, 512, 50) {
			if text[c.Start:c.End] != c.Text || c.Index != i {
				fs.chunkFailed = true
				if !fs.chunkLogged {
					fmt.Fprintf(os.Stderr, "CHUNK_FAIL: %s: %s\n", fs.path, c)
					fs.chunkLogged = true
				}
				break
			}
		}
	}

	fs.paragraphs += strings.Count(text, "\n\n")

	if !fs.hasCJK && containsCJK(text) {
		fs.hasCJK = true
	}
}

// restoredEqual reports whether restored differs from orig only at positions
// where abbreviation-guard restoration replaced an original whitespace byte
// with an ASCII space.
func restoredEqual(orig, restored string) bool {
	if len(orig) != len(restored) {
		return false
	}
	for i := range len(orig) {
		if orig[i] == restored[i] {
			continue
		}
		if restored[i] != ' ' {
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

func mergeFileState(fs *fileState, stats *Stats) {
	stats.mu.Lock()
	defer stats.mu.Unlock()

	stats.filesScanned++
	stats.totalBytes += fs.totalBytes
	stats.totalSentences += fs.sentences
	stats.totalNaive += fs.naive
	stats.oversized += fs.oversized

	if fs.spanFailed {
		stats.spanFail++
	} else {
		stats.spanOK++
	}
	if fs.chunkFailed {
		stats.chunkFail++
	} else {
		stats.chunkOK++
	}

	ratio := float64(fs.sentences) / float64(fs.paragraphs)
	stats.fileRatios = append(stats.fileRatios, fileRatio{
		path:       fs.path,
		sentences:  fs.sentences,
		paragraphs: fs.paragraphs,
		ratio:      ratio,
	})

	if fs.hasCJK {
		stats.cjkFiles++
	}
}

func logSpanDivergence(path, original, restored string) {
	pos, got, want := firstDivergence(original, restored)
	fmt.Fprintf(os.Stderr, "SPAN_FAIL: %s: first divergence at byte %d (got 0x%02x, want 0x%02x)\n",
		path, pos, got, want)
}

// flagSentenceOutliers computes the median sentence/paragraph ratio across all
// files and flags any file whose ratio exceeds 3x the median.
func flagSentenceOutliers(stats *Stats) {
	if len(stats.fileRatios) == 0 {
		return
	}

	ratios := make([]float64, len(stats.fileRatios))
	for i, fr := range stats.fileRatios {
		ratios[i] = fr.ratio
	}
	med := computeMedian(ratios)

	for _, fr := range stats.fileRatios {
		if med > 0 && fr.ratio > 3*med {
			stats.sentenceOutliers++
			fmt.Fprintf(os.Stderr, "SENTENCE_OUTLIER: %s: %d sentences / %d paragraphs (ratio %.2f, median %.2f)\n",
				fr.path, fr.sentences, fr.paragraphs, fr.ratio, med)
		}
	}
}

func containsCJK(text string) bool {
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

// firstDivergence finds the byte position where two strings first differ.
// Returns the position and the differing bytes from each string.
func firstDivergence(original, restored string) (pos int, got, want byte) {
	n := min(len(original), len(restored))
	for i := range n {
		if original[i] != restored[i] {
			return i, restored[i], original[i]
		}
	}
	pos = n
	if pos < len(restored) {
		got = restored[pos]
	}
	if pos < len(original) {
		want = original[pos]
	}
	return pos, got, want
}

func computeMedian(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2 //nolint:mnd // arithmetic mean of two middle values
	}
	return sorted[mid]
}

func printStats(stats *Stats) {
	fmt.Printf("Files scanned:           %d\n", stats.filesScanned)
	fmt.Printf("Total bytes:             %d\n", stats.totalBytes)
	fmt.Printf("Span invariants OK:      %d\n", stats.spanOK)
	fmt.Printf("Span invariants FAIL:    %d\n", stats.spanFail)
	fmt.Printf("Chunk invariants OK:     %d\n", stats.chunkOK)
	fmt.Printf("Chunk invariants FAIL:   %d\n", stats.chunkFail)
	fmt.Printf("Sentence outliers:       %d\n", stats.sentenceOutliers)
	fmt.Printf("CJK files:               %d\n", stats.cjkFiles)
	fmt.Println()

	fmt.Printf("Sentences (Advanced):    %d\n", stats.totalSentences)
	fmt.Printf("Sentences (Naive):       %d\n", stats.totalNaive)
	fmt.Printf("Oversized sentences:     %d\n", stats.oversized)
}

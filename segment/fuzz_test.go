package segment

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func FuzzSpans(f *testing.F) {
	f.Add("Hello world. How are you? I am fine!")
	f.Add("你好世界。你好吗？我很好！")
	f.Add("Mr. Smith said hello. Dr. Johnson replied.")
	f.Add("等等……让我想想。还有其他事情。")
	f.Add("Wait......Let me think.")
	f.Add("他说\"你好！\"然后离开了。")
	f.Add("  你好。  世界。")
	f.Add("line one\nline two\n\n")
	f.Add("")
	f.Add("。”’，")

	f.Fuzz(func(t *testing.T, s string) {
		if !utf8.ValidString(s) {
			return
		}
		for _, mode := range []Mode{Advanced, Naive} {
			spans := Spans(s, mode)
			verifySpanInvariants(t, s, spans)
			for i, sp := range spans {
				if sp.Text == "" {
					t.Fatalf("mode %v: span %d is empty", mode, i)
				}
				if !utf8.ValidString(sp.Text) {
					t.Fatalf("mode %v: span %d is not valid UTF-8: %q", mode, i, sp.Text)
				}
			}
		}
	})
}

func FuzzSplit(f *testing.F) {
	f.Add("Hello world. How are you? I am fine!")
	f.Add("你好世界。你好吗？我很好！")
	f.Add("Mrs. Brown came home. Prof. Wilson left.")
	f.Add("Really??? Yes!!! Absolutely...")
	f.Add("First sentence.\n\n\nSecond sentence.")
	f.Add("   \t\n  ")
	f.Add("")

	f.Fuzz(func(t *testing.T, s string) {
		if !utf8.ValidString(s) {
			return
		}
		advanced := Split(s, Advanced)
		naive := Split(s, Naive)

		for i, sent := range advanced {
			if sent == "" {
				t.Fatalf("sentence %d is empty", i)
			}
			if strings.TrimSpace(sent) != sent {
				t.Fatalf("sentence %d has surrounding whitespace: %q", i, sent)
			}
		}

		// Advanced mode only ever subdivides the chunks Naive mode yields.
		if len(advanced) < len(naive) {
			t.Fatalf("Advanced produced %d sentences, Naive %d; Advanced must not merge chunks",
				len(advanced), len(naive))
		}

		if strings.TrimSpace(s) == "" && len(advanced) != 0 {
			t.Fatalf("whitespace-only input produced sentences: %q", advanced)
		}
	})
}

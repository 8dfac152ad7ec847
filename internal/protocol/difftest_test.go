package protocol

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// assertFrameEqual fails t with a unified hex-dump diff when want and got
// disagree, instead of a flat byte-slice dump.
func assertFrameEqual(t *testing.T, want, got []byte) {
	t.Helper()
	if string(want) == string(got) {
		return
	}
	before := hex.Dump(want)
	after := hex.Dump(got)
	edits := myers.ComputeEdits(span.URIFromPath("want"), before, after)
	diff := gotextdiff.ToUnified("want", "got", before, edits)
	t.Fatalf("frame mismatch:\n%s", diff)
}

// assertStateEqual fails t with a structural diff of the two States
// rendered as JSON, instead of a flat struct dump.
func assertStateEqual(t *testing.T, want, got State) {
	t.Helper()
	if want == got {
		return
	}

	wantMap, gotMap := toJSONMap(t, want), toJSONMap(t, got)
	diff, err := gojsondiff.New().CompareObjects(wantMap, gotMap)
	if err != nil {
		t.Fatalf("state diff: %v", err)
	}
	if !diff.Modified() {
		t.Fatalf("states differ but gojsondiff reports no delta; want=%+v got=%+v", want, got)
	}

	out, err := formatter.NewAsciiFormatter(wantMap, formatter.AsciiFormatterDefaultConfig).Format(diff)
	if err != nil {
		t.Fatalf("state diff render: %v", err)
	}
	t.Fatalf("state mismatch:\n%s", out)
}

func toJSONMap(t *testing.T, s State) map[string]interface{} {
	t.Helper()
	buf, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(buf, &m); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	return m
}

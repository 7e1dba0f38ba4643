package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/thechalk/chalkbot/internal/models"
)

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != OutputText {
		t.Errorf("empty: %v, %v", f, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != OutputJSON {
		t.Errorf("json: %v, %v", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("yaml should be rejected")
	}
}

func TestWriteAnswer_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, models.Answer{Text: "the answer", Grounded: true}, OutputText); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); !strings.Contains(got, "the answer") || strings.Contains(got, "without course material") {
		t.Errorf("output=%q", got)
	}

	buf.Reset()
	if err := WriteAnswer(&buf, models.Answer{Text: "a guess", Grounded: false}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "without course material") {
		t.Errorf("ungrounded marker missing: %q", buf.String())
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, models.Answer{Text: "the answer", Grounded: true}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var ans models.Answer
	if err := json.Unmarshal(buf.Bytes(), &ans); err != nil {
		t.Fatal(err)
	}
	if ans.Text != "the answer" || !ans.Grounded {
		t.Errorf("round trip: %+v", ans)
	}
}

func TestWriteTrainSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTrainSummary(&buf, TrainSummary{Scope: "global", Chunks: 12}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "global") || !strings.Contains(buf.String(), "12") {
		t.Errorf("output=%q", buf.String())
	}
}

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("prod", "debug", &buf)
	l.WithField("reservation_id", 7).Debug("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("prod output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "hello" || entry["reservation_id"] != float64(7) {
		t.Fatalf("entry = %v", entry)
	}

	buf.Reset()
	l = NewWithOutput("dev", "nonsense", &buf)
	if l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %s, want info", l.GetLevel())
	}
	l.Info("plain")
	if !strings.Contains(buf.String(), "msg=plain") {
		t.Fatalf("text output = %q", buf.String())
	}
}

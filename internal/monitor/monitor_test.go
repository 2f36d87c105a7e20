package monitor_test

import (
	"bytes"
	"strings"
	"testing"

	"rmmdeploy/internal/monitor"
)

func newTestEmitter() (*monitor.Emitter, *bytes.Buffer, *int) {
	var buf bytes.Buffer
	code := -1
	e := &monitor.Emitter{
		Out:  &buf,
		Exit: func(c int) { code = c },
		Var:  "Status",
	}
	return e, &buf, &code
}

func TestSuccessOutput(t *testing.T) {
	e, buf, code := newTestEmitter()
	e.Progress("checked %d volumes", 3)
	e.Progress("all within threshold")
	e.Success("disk space healthy")

	if *code != 0 {
		t.Errorf("exit code: got %d, want 0", *code)
	}

	want := strings.Join([]string{
		"<-Start Diagnostic->",
		"checked 3 volumes",
		"all within threshold",
		"<-End Diagnostic->",
		"<-Start Result->",
		"Status=OK: disk space healthy",
		"<-End Result->",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("output mismatch:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestAlertOutput(t *testing.T) {
	e, buf, code := newTestEmitter()
	e.Progress("usage at 97%%")
	e.Alert("disk usage above threshold")

	if *code != 1 {
		t.Errorf("exit code: got %d, want 1", *code)
	}
	if !strings.Contains(buf.String(), "X=disk usage above threshold") {
		t.Errorf("missing alert result line in output:\n%s", buf.String())
	}
	if problems := monitor.Validate(buf.String(), "Status"); problems != nil {
		t.Errorf("alert output failed validation: %v", problems)
	}
}

func TestEmptyVarDefaultsToStatus(t *testing.T) {
	e, buf, _ := newTestEmitter()
	e.Var = ""
	e.Success("ok")
	if !strings.Contains(buf.String(), "Status=OK: ok") {
		t.Errorf("expected default Status variable, got:\n%s", buf.String())
	}
}

func TestValidate(t *testing.T) {
	valid := "<-Start Diagnostic->\nprogress\n<-End Diagnostic->\n<-Start Result->\nStatus=OK: fine\n<-End Result->\n"

	tests := []struct {
		name    string
		text    string
		wantErr string // substring of first problem, empty for valid
	}{
		{"valid", valid, ""},
		{
			"valid alert form",
			"<-Start Diagnostic->\n<-End Diagnostic->\n<-Start Result->\nX=bad news\n<-End Result->\n",
			"",
		},
		{
			"missing result markers",
			"<-Start Diagnostic->\nonly diagnostics\n<-End Diagnostic->\n",
			"<-Start Result->",
		},
		{
			"duplicate result marker",
			valid + "<-Start Result->\n",
			"<-Start Result->",
		},
		{
			"markers out of order",
			"<-Start Result->\nStatus=OK: x\n<-End Result->\n<-Start Diagnostic->\n<-End Diagnostic->\n",
			"marker order",
		},
		{
			"empty result block",
			"<-Start Diagnostic->\n<-End Diagnostic->\n<-Start Result->\n\n<-End Result->\n",
			"result block is empty",
		},
		{
			"two result lines",
			"<-Start Diagnostic->\n<-End Diagnostic->\n<-Start Result->\nStatus=OK: a\nStatus=OK: b\n<-End Result->\n",
			"exactly one non-empty line",
		},
		{
			"wrong variable name",
			"<-Start Diagnostic->\n<-End Diagnostic->\n<-Start Result->\nResult=OK: fine\n<-End Result->\n",
			"result line must be",
		},
		{
			"space after equals",
			"<-Start Diagnostic->\n<-End Diagnostic->\n<-Start Result->\nStatus= OK: fine\n<-End Result->\n",
			"no space allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := monitor.Validate(tt.text, "Status")
			if tt.wantErr == "" {
				if problems != nil {
					t.Errorf("expected valid, got problems: %v", problems)
				}
				return
			}
			if problems == nil {
				t.Fatal("expected problems, got none")
			}
			if !strings.Contains(problems[0], tt.wantErr) {
				t.Errorf("first problem %q does not mention %q", problems[0], tt.wantErr)
			}
		})
	}
}

func TestHasResult(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"well formed", "<-Start Result->\nStatus=OK: x\n<-End Result->", true},
		{"diagnostics only", "<-Start Diagnostic->\nstuff\n<-End Diagnostic->", false},
		{"empty result block", "<-Start Result->\n\n<-End Result->", false},
		{"no markers at all", "plain output, exit 0", false},
		{"unterminated result", "<-Start Result->\nStatus=OK: x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := monitor.HasResult(tt.text); got != tt.want {
				t.Errorf("HasResult: got %v, want %v", got, tt.want)
			}
		})
	}
}

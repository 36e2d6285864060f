package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

func sampleResults() []scan.Result {
	return []scan.Result{
		{
			URL: "https://a.com",
			Signals: scan.Signals{
				UsesHTTPS:      true,
				ServerHeader:   "gws",
				PresentHeaders: []string{"Strict-Transport-Security", "X-Frame-Options"},
				RobotsTxtFound: true,
			},
			RiskLevel: scan.RiskGood,
		},
		{
			URL:       "http://b.com",
			Signals:   scan.Signals{ServerHeader: scan.ServerNotPresent, PresentHeaders: []string{}},
			RiskLevel: scan.RiskHigh,
		},
		{
			URL:       "http://down.example",
			Signals:   scan.FailedSignals("connection refused"),
			RiskLevel: scan.RiskError,
		},
	}
}

func TestWriteCSV_Full(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Records(sampleResults()), SchemaFull); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := strings.Join([]string{
		"url,https,server_info,Content-Security-Policy,Strict-Transport-Security,X-Content-Type-Options,X-Frame-Options,Referrer-Policy,open_directory,robots_txt,risk_level,error",
		"https://a.com,Yes,gws,No,Yes,No,Yes,No,No,Yes,Good,",
		"http://b.com,No,Not Present,No,No,No,No,No,No,No,High Risk,",
		"http://down.example,No,Unknown,No,No,No,No,No,No,No,Error,connection refused",
	}, "\n") + "\n"

	if buf.String() != want {
		t.Errorf("unexpected CSV:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteCSV_Basic(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Records(sampleResults()), SchemaBasic); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := strings.Join([]string{
		"url,reachable,https,server,robots_txt,error",
		"https://a.com,Yes,Yes,gws,Yes,",
		"http://b.com,Yes,No,Unknown,No,",
		"http://down.example,No,No,Unknown,No,connection refused",
	}, "\n") + "\n"

	if buf.String() != want {
		t.Errorf("unexpected CSV:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteCSV_EmptyWritesHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil, SchemaBasic); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if buf.String() != "url,reachable,https,server,robots_txt,error\n" {
		t.Errorf("Expected header only, got %q", buf.String())
	}
}

func TestWriteCSV_QuotesFieldsWithCommas(t *testing.T) {
	results := []scan.Result{{
		URL:       "http://x.example",
		Signals:   scan.FailedSignals("dial tcp: lookup x.example, no such host"),
		RiskLevel: scan.RiskError,
	}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, Records(results), SchemaBasic); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !strings.Contains(buf.String(), `"dial tcp: lookup x.example, no such host"`) {
		t.Errorf("Expected quoted error field, got %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResults()[:1]); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	out := buf.String()
	for _, fragment := range []string{`"url": "https://a.com"`, `"risk_level": "Good"`, `"robots_txt": true`} {
		if !strings.Contains(out, fragment) {
			t.Errorf("Expected %s in JSON output:\n%s", fragment, out)
		}
	}
}

func TestParseSchema(t *testing.T) {
	tests := []struct {
		in   string
		want Schema
		err  bool
	}{
		{"", SchemaFull, false},
		{"full", SchemaFull, false},
		{"BASIC", SchemaBasic, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSchema(tt.in)
		if tt.err {
			if !errors.Is(err, sharedErrors.ErrUnknownFormat) {
				t.Errorf("ParseSchema(%q): expected ErrUnknownFormat, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseSchema(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

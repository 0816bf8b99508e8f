package tasks

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/taskdeck/taskdeck/internal/domain"
)

func exportFixture() []domain.Task {
	created := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	return []domain.Task{
		{
			ID:                 "task-1",
			Status:             domain.StatusCompleted,
			Model:              domain.ModelOpus,
			Prompt:             `Say "hello", then stop`,
			WorkingDir:         "/srv/app",
			OrchestrationGroup: "g1",
			DependsOn:          []string{"task-0", "task-x"},
			Metadata:           &domain.TaskMetadata{Complexity: "high", ComplexityScore: 82},
			CreatedAt:          created,
			UpdatedAt:          created.Add(45 * time.Minute),
		},
	}
}

func TestExportTasks_CSVHeader(t *testing.T) {
	out, err := ExportTasks(nil, FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	want := "Identificador,Status,Modelo,Data Criação,Data Atualização," +
		"Grupo Orquestração,Dependências,Diretório,Complexidade,Score Complexidade,Prompt"
	if string(out) != want {
		t.Errorf("header = %q\nwant = %q", out, want)
	}
}

func TestExportTasks_CSVRow(t *testing.T) {
	out, err := ExportTasks(exportFixture(), FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(string(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	want := `"task-1","completed","opus","15/03/2026 09:30:00","15/03/2026 10:15:00",` +
		`"g1","task-0, task-x","/srv/app","high","82","Say ""hello"", then stop"`
	if lines[1] != want {
		t.Errorf("row = %s\nwant = %s", lines[1], want)
	}
}

func TestExportTasks_CSVPromptTruncation(t *testing.T) {
	tasks := exportFixture()
	tasks[0].Prompt = strings.Repeat("a", 250)

	out, err := ExportTasks(tasks, FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	want := `"` + strings.Repeat("a", 200) + `..."`
	if !strings.HasSuffix(string(out), want) {
		t.Errorf("prompt field not truncated to 200 chars plus ellipsis")
	}
	if strings.Contains(string(out), strings.Repeat("a", 201)) {
		t.Error("more than 200 prompt chars leaked into the export")
	}
}

func TestExportTasks_CSVPromptTruncationMultibyte(t *testing.T) {
	tasks := exportFixture()
	// 199 ASCII chars, then accented text: the 200-char cut lands on a
	// multibyte rune.
	tasks[0].Prompt = strings.Repeat("a", 199) + "ção final para exportação"

	out, err := ExportTasks(tasks, FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if !utf8.Valid(out) {
		t.Fatal("export contains invalid UTF-8")
	}
	want := `"` + strings.Repeat("a", 199) + `ç..."`
	if !strings.HasSuffix(string(out), want) {
		t.Errorf("truncated prompt not cut on a rune boundary: %q", out[len(out)-40:])
	}

	// A prompt of exactly 200 runes but more than 200 bytes is untouched.
	tasks[0].Prompt = strings.Repeat("ç", 200)
	out, err = ExportTasks(tasks, FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "...") {
		t.Error("200-rune prompt should not be truncated")
	}
}

func TestExportTasks_MissingMetadata(t *testing.T) {
	out, err := ExportTasks([]domain.Task{{ID: "bare", Status: domain.StatusPending}}, FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"n/a","0"`) {
		t.Errorf("missing metadata should export as n/a and 0, got: %s", out)
	}
}

func TestExportTasks_JSON(t *testing.T) {
	tasks := exportFixture()
	out, err := ExportTasks(tasks, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := json.MarshalIndent(tasks, "", "  ")
	if string(out) != string(want) {
		t.Errorf("JSON export differs from the indented task array")
	}

	var back []domain.Task
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(back) != 1 || back[0].ID != "task-1" {
		t.Errorf("round-trip = %+v", back)
	}
}

func TestExportTasks_ExcelIsUnquotedTSV(t *testing.T) {
	tasks := exportFixture()
	tasks[0].Prompt = "line one\nline two\twith tab"

	out, err := ExportTasks(tasks, FormatExcel)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(string(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("embedded newline leaked into a TSV row: %q", out)
	}
	if strings.Contains(lines[1], `"`) {
		t.Error("TSV fields must not be quoted")
	}
	fields := strings.Split(lines[1], "\t")
	if len(fields) != len(exportColumns) {
		t.Fatalf("got %d fields, want %d", len(fields), len(exportColumns))
	}
	if fields[len(fields)-1] != "line one line two with tab" {
		t.Errorf("prompt field = %q", fields[len(fields)-1])
	}
}

func TestExportTasks_UnknownFormat(t *testing.T) {
	if _, err := ExportTasks(nil, ExportFormat("yaml")); err == nil {
		t.Error("unknown format should error")
	}
}

func TestFileExtension(t *testing.T) {
	cases := map[ExportFormat]string{
		FormatCSV:   "csv",
		FormatJSON:  "json",
		FormatExcel: "txt",
	}
	for f, want := range cases {
		if got := f.FileExtension(); got != want {
			t.Errorf("%s extension = %q, want %q", f, got, want)
		}
	}
}

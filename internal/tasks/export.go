package tasks

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/taskdeck/taskdeck/internal/domain"
)

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatJSON  ExportFormat = "json"
	FormatExcel ExportFormat = "excel" // tab-separated text
)

// Export column labels are a fixed contract with existing spreadsheet
// templates; do not reorder or translate.
var exportColumns = []string{
	"Identificador",
	"Status",
	"Modelo",
	"Data Criação",
	"Data Atualização",
	"Grupo Orquestração",
	"Dependências",
	"Diretório",
	"Complexidade",
	"Score Complexidade",
	"Prompt",
}

const (
	exportTimeLayout  = "02/01/2006 15:04:05"
	promptExportLimit = 200
)

// ExportTasks serializes tasks deterministically in the given format.
// CSV and Excel (TSV) share field order; JSON is the pretty-printed task
// array with 2-space indentation.
func ExportTasks(tasks []domain.Task, format ExportFormat) ([]byte, error) {
	switch format {
	case FormatCSV:
		return exportSeparated(tasks, ",", true), nil
	case FormatExcel:
		return exportSeparated(tasks, "\t", false), nil
	case FormatJSON:
		return json.MarshalIndent(tasks, "", "  ")
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// FileExtension returns the file extension for the format.
func (f ExportFormat) FileExtension() string {
	switch f {
	case FormatExcel:
		return "txt"
	default:
		return string(f)
	}
}

func exportSeparated(tasks []domain.Task, sep string, quote bool) []byte {
	lines := make([]string, 0, len(tasks)+1)
	lines = append(lines, strings.Join(exportColumns, sep))

	for i := range tasks {
		fields := exportFields(&tasks[i])
		for j, f := range fields {
			if quote {
				fields[j] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
			} else {
				// Unquoted TSV rows must stay single-line.
				fields[j] = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(f)
			}
		}
		lines = append(lines, strings.Join(fields, sep))
	}
	return []byte(strings.Join(lines, "\n"))
}

func exportFields(t *domain.Task) []string {
	prompt := t.Prompt
	// Truncate on rune boundaries; byte slicing would split accented
	// characters and emit invalid UTF-8.
	if runes := []rune(prompt); len(runes) > promptExportLimit {
		prompt = string(runes[:promptExportLimit]) + "..."
	}
	return []string{
		t.ID,
		string(t.Status),
		string(t.Model),
		t.CreatedAt.Format(exportTimeLayout),
		t.UpdatedAt.Format(exportTimeLayout),
		t.OrchestrationGroup,
		strings.Join(t.DependsOn, ", "),
		t.WorkingDir,
		t.ComplexityLabel(),
		strconv.Itoa(t.ComplexityScore()),
		prompt,
	}
}

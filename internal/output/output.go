package output

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
)

// SummaryOutput represents summary statistics for output
type SummaryOutput struct {
	TotalSubjects   int              `json:"total_subjects"`
	UpSubjects      int              `json:"up_subjects"`
	DownSubjects    int              `json:"down_subjects"`
	UpRate          float64          `json:"up_rate"`
	VerdictsPerTag  map[string]int   `json:"verdicts_per_source"`
	AverageDuration float64          `json:"average_duration_seconds"`
	Results         []*status.Status `json:"results"`
}

// GenerateSummary creates a summary from check results
func GenerateSummary(results []*status.Status) SummaryOutput {
	summary := SummaryOutput{
		TotalSubjects:  len(results),
		VerdictsPerTag: make(map[string]int),
		Results:        results,
	}

	var totalDuration float64

	for _, st := range results {
		if st.IsUp() {
			summary.UpSubjects++
		} else {
			summary.DownSubjects++
		}
		summary.VerdictsPerTag[st.StatusSource]++
		totalDuration += st.Duration
	}

	if summary.TotalSubjects > 0 {
		summary.UpRate = float64(summary.UpSubjects) / float64(summary.TotalSubjects) * 100
		summary.AverageDuration = totalDuration / float64(summary.TotalSubjects)
	}

	return summary
}

// WriteTextOutput writes results to a text file
func WriteTextOutput(filename string, summary SummaryOutput) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "StatusHawk Results - %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "=====================================\n\n")

	for _, st := range summary.Results {
		marker := "❌"
		if st.IsUp() {
			marker = "✅"
		}

		fmt.Fprintf(file, "%s %s - %s (%s)", marker, st.Subject, st.Status, st.StatusSource)
		if st.HTTPStatusCode > 0 && st.HTTPStatusCode != status.UnknownStatusCode {
			fmt.Fprintf(file, " [%d]", st.HTTPStatusCode)
		}
		fmt.Fprintf(file, "\n")
	}

	fmt.Fprintf(file, "\n=====================================\n")
	fmt.Fprintf(file, "SUMMARY\n")
	fmt.Fprintf(file, "=====================================\n")
	fmt.Fprintf(file, "Total subjects checked: %d\n", summary.TotalSubjects)
	fmt.Fprintf(file, "Up: %d\n", summary.UpSubjects)
	fmt.Fprintf(file, "Down: %d\n", summary.DownSubjects)
	fmt.Fprintf(file, "Up rate: %.2f%%\n", summary.UpRate)

	if summary.AverageDuration > 0 {
		fmt.Fprintf(file, "Average check duration: %.2fs\n", summary.AverageDuration)
	}

	return nil
}

// WriteJSONOutput writes results to a JSON file
func WriteJSONOutput(filename string, summary SummaryOutput) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}

// WriteUpSubjectsOutput writes only subjects that resolved up, one per
// line, ready to be fed back into another tool.
func WriteUpSubjectsOutput(filename string, results []*status.Status) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "# Up subjects - Generated %s\n", time.Now().Format(time.RFC3339))

	for _, st := range results {
		if st.IsUp() {
			fmt.Fprintf(file, "%s\n", st.Subject)
		}
	}

	return nil
}

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/retail-analytics/internal/model"
)

var (
	exportInput  string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an answers JSONL file to an xlsx report",
	RunE: func(cmd *cobra.Command, args []string) error {
		answers, err := readAnswers(exportInput)
		if err != nil {
			return err
		}
		if err := exportAnswers(answers, exportOutput); err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.Int("answers", len(answers)),
			zap.String("output", exportOutput),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportInput, "input", "answers.jsonl", "input answers JSONL")
	exportCmd.Flags().StringVar(&exportOutput, "output", "answers.xlsx", "output xlsx file")
	rootCmd.AddCommand(exportCmd)
}

func readAnswers(path string) ([]model.Answer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open input %s", path)
	}
	defer f.Close()

	var answers []model.Answer
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var a model.Answer
		if err := json.Unmarshal(sc.Bytes(), &a); err != nil {
			return nil, eris.Wrap(err, "parse answer")
		}
		answers = append(answers, a)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "read answers")
	}
	return answers, nil
}

func exportAnswers(answers []model.Answer, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Answers")
	if err != nil {
		return eris.Wrap(err, "add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"ID", "Answer", "SQL", "Confidence", "Explanation", "Citations"} {
		header.AddCell().SetString(h)
	}

	for _, a := range answers {
		row := sheet.AddRow()
		row.AddCell().SetString(a.ID)
		row.AddCell().SetString(renderFinalAnswer(a.FinalAnswer))
		row.AddCell().SetString(a.SQL)
		row.AddCell().SetFloatWithFormat(a.Confidence, "0.00")
		row.AddCell().SetString(a.Explanation)
		row.AddCell().SetString(strings.Join(a.Citations, "; "))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "save xlsx %s", path)
	}
	return nil
}

// renderFinalAnswer flattens a structured answer into one cell. Structured
// shapes keep their JSON form so the report stays lossless.
func renderFinalAnswer(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

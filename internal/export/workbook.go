// Package export renders an intake as a spreadsheet for hiring teams that
// work outside the app.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/smart-intake/internal/db"
	"github.com/jonathan/smart-intake/internal/types"
	"github.com/xuri/excelize/v2"
)

// Sheet names, in workbook order
const (
	SummarySheet   = "Summary"
	LoopSheet      = "Interview Loop"
	QuestionsSheet = "Questions"
	RubricsSheet   = "Rubrics"
)

// ContentType is the MIME type of the workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	loopHeaders     = []string{"#", "Stage", "Intent", "Minutes", "Signals", "Interviewer Hints", "Form Template", "Coding Assessment"}
	questionHeaders = []string{"Stage", "Type", "Competency", "Question", "Follow-ups", "Rationale"}
	rubricHeaders   = []string{"Stage", "Criterion", "Excellent", "Good", "Needs Improvement", "Poor"}
)

// FileName suggests a download name for an intake's workbook
func FileName(in *db.Intake) string {
	name := strings.TrimSpace(in.Title)
	if name == "" {
		name = "intake"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	return name + "-interview-plan.xlsx"
}

// WriteWorkbook writes the summary, loop, questions and rubrics of an intake to w
func WriteWorkbook(w io.Writer, in *db.Intake) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	for _, name := range []string{LoopSheet, QuestionsSheet, RubricsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create %s sheet: %w", name, err)
		}
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeSummary(f, styles, in); err != nil {
		return fmt.Errorf("failed to write summary sheet: %w", err)
	}

	plan := types.LoopPlan{}
	if in.InterviewLoop != nil {
		plan = *in.InterviewLoop
	}
	if err := writeLoop(f, styles, plan); err != nil {
		return fmt.Errorf("failed to write loop sheet: %w", err)
	}
	if err := writeQuestions(f, styles, plan); err != nil {
		return fmt.Errorf("failed to write questions sheet: %w", err)
	}
	if err := writeRubrics(f, styles, plan); err != nil {
		return fmt.Errorf("failed to write rubrics sheet: %w", err)
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

type styles struct {
	title  int
	header int
	label  int
	wrap   int
}

func newStyles(f *excelize.File) (*styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	var s styles
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	}); err != nil {
		return nil, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}); err != nil {
		return nil, err
	}
	if s.label, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, err
	}
	if s.wrap, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    border,
	}); err != nil {
		return nil, err
	}
	return &s, nil
}

func writeSummary(f *excelize.File, s *styles, in *db.Intake) error {
	sheet := SummarySheet
	_ = f.SetColWidth(sheet, "A", "A", 25)
	_ = f.SetColWidth(sheet, "B", "B", 70)

	if err := f.SetCellValue(sheet, "A1", "Interview Plan: "+in.Title); err != nil {
		return err
	}
	_ = f.SetCellStyle(sheet, "A1", "B1", s.title)
	_ = f.MergeCell(sheet, "A1", "B1")

	rows := [][2]any{
		{"Job Title", in.JobTitle},
		{"Level", in.Level},
		{"Status", in.Status},
		{"Hiring Manager", in.HiringManager},
		{"Department", in.Department},
		{"ATS Job", in.AshbyJobID},
		{"Created By", in.CreatedBy},
		{"Last Updated", in.UpdatedAt.Format("2006-01-02 15:04")},
	}
	if in.ExtractedData != nil {
		r := in.ExtractedData
		rows = append(rows,
			[2]any{"Function", r.Function},
			[2]any{"Must Haves", strings.Join(r.MustHaves, "\n")},
			[2]any{"Nice To Haves", strings.Join(r.NiceToHaves, "\n")},
			[2]any{"Competencies", formatCompetencies(r.Competencies)},
			[2]any{"Risks", strings.Join(r.Risks, "\n")},
		)
	}
	if in.OrgContext != nil {
		rows = append(rows,
			[2]any{"Team", strings.Join(in.OrgContext.Team, "\n")},
			[2]any{"Cross-functional", strings.Join(in.OrgContext.CrossFunc, "\n")},
		)
	}
	if in.InterviewLoop != nil {
		rows = append(rows,
			[2]any{"Total Minutes", in.InterviewLoop.TotalMins},
			[2]any{"Loop Risks", strings.Join(in.InterviewLoop.Risks, "\n")},
		)
	}
	for _, hit := range in.Templates {
		rows = append(rows, [2]any{"Template", fmt.Sprintf("%s (%s, %.0f%%)", hit.Title, hit.Source, hit.Score*100)})
	}

	for i, kv := range rows {
		row := i + 3
		if err := f.SetSheetRow(sheet, cell(1, row), &[]any{kv[0], kv[1]}); err != nil {
			return err
		}
		_ = f.SetCellStyle(sheet, cell(1, row), cell(1, row), s.label)
		_ = f.SetCellStyle(sheet, cell(2, row), cell(2, row), s.wrap)
	}
	return nil
}

func writeLoop(f *excelize.File, s *styles, plan types.LoopPlan) error {
	sheet := LoopSheet
	widths := []float64{5, 28, 45, 10, 35, 45, 20, 30}
	if err := writeHeader(f, s, sheet, loopHeaders, widths); err != nil {
		return err
	}

	for i, stage := range plan.Stages {
		assessment := ""
		if stage.CodeSignalTest != nil {
			assessment = stage.CodeSignalTest.Name
		}
		values := []any{
			i + 1, stage.Name, stage.Intent, stage.DurationMins,
			strings.Join(stage.Signals, ", "), strings.Join(stage.InterviewerHints, "\n"),
			stage.FormTemplateID, assessment,
		}
		if err := writeRow(f, s, sheet, i+2, values); err != nil {
			return err
		}
	}

	totalRow := len(plan.Stages) + 2
	if err := f.SetSheetRow(sheet, cell(2, totalRow), &[]any{"Total", "", plan.SumDurations()}); err != nil {
		return err
	}
	_ = f.SetCellStyle(sheet, cell(2, totalRow), cell(4, totalRow), s.label)
	return nil
}

func writeQuestions(f *excelize.File, s *styles, plan types.LoopPlan) error {
	sheet := QuestionsSheet
	widths := []float64{25, 14, 22, 60, 45, 40}
	if err := writeHeader(f, s, sheet, questionHeaders, widths); err != nil {
		return err
	}

	row := 2
	for _, stage := range plan.Stages {
		for _, q := range stage.Questions {
			values := []any{stage.Name, string(q.Type), q.Competency, q.Question, strings.Join(q.FollowUps, "\n"), q.Rationale}
			if err := writeRow(f, s, sheet, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeRubrics(f *excelize.File, s *styles, plan types.LoopPlan) error {
	sheet := RubricsSheet
	widths := []float64{25, 25, 40, 40, 40, 40}
	if err := writeHeader(f, s, sheet, rubricHeaders, widths); err != nil {
		return err
	}

	row := 2
	for _, stage := range plan.Stages {
		for _, c := range stage.Rubric {
			values := []any{stage.Name, c.Criterion, c.Excellent, c.Good, c.NeedsImprovement, c.Poor}
			if err := writeRow(f, s, sheet, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeHeader(f *excelize.File, s *styles, sheet string, headers []string, widths []float64) error {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, w)
	}
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return err
	}
	_ = f.SetCellStyle(sheet, "A1", cell(len(headers), 1), s.header)

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeRow(f *excelize.File, s *styles, sheet string, row int, values []any) error {
	if err := f.SetSheetRow(sheet, cell(1, row), &values); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell(1, row), cell(len(values), row), s.wrap)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func formatCompetencies(cs []types.Competency) string {
	lines := make([]string, 0, len(cs))
	for _, c := range cs {
		if c.Rationale != "" {
			lines = append(lines, c.Name+": "+c.Rationale)
		} else {
			lines = append(lines, c.Name)
		}
	}
	return strings.Join(lines, "\n")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/idea-engine/pkg/types"
)

const (
	ideasSheet  = "Ideas"
	slidesSheet = "Slides"
)

var ideaHeaders = []string{
	"Idea ID",
	"Title",
	"Target Users",
	"Status",
	"Problem Score",
	"TAM ($M)",
	"Impact Score",
	"Technical Score",
	"Slides",
	"One-Line Pitch",
	"Stage Entered",
}

var slideHeaders = []string{"Idea ID", "Number", "Title", "Content", "Notes", "Visual"}

// WriteXLSX writes a workbook with one row per idea on the Ideas sheet and
// one row per slide on the Slides sheet.
func WriteXLSX(w io.Writer, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ideasSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(slidesSheet); err != nil {
		return fmt.Errorf("adding sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(ideasSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := writeRow(f, ideasSheet, 1, toAny(ideaHeaders)); err != nil {
		return err
	}
	if err := writeRow(f, slidesSheet, 1, toAny(slideHeaders)); err != nil {
		return err
	}

	slideRow := 2
	for i, e := range entries {
		if err := writeRow(f, ideasSheet, i+2, ideaRow(e)); err != nil {
			return err
		}
		if e.Deck == nil {
			continue
		}
		for _, s := range e.Deck.Slides {
			row := []any{e.Idea.ID, s.Number, s.Title, strings.Join(s.Content, "\n"), s.Notes, s.VisualSuggestion}
			if err := writeRow(f, slidesSheet, slideRow, row); err != nil {
				return err
			}
			slideRow++
		}
	}

	_ = f.SetColWidth(ideasSheet, "A", "A", 38) // id
	_ = f.SetColWidth(ideasSheet, "B", "C", 32) // title, users
	_ = f.SetColWidth(ideasSheet, "D", "I", 14) // status, scores
	_ = f.SetColWidth(ideasSheet, "J", "J", 60) // pitch
	_ = f.SetColWidth(ideasSheet, "K", "K", 20) // date
	_ = f.SetColWidth(slidesSheet, "A", "A", 38)
	_ = f.SetColWidth(slidesSheet, "C", "C", 28)
	_ = f.SetColWidth(slidesSheet, "D", "F", 48)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func ideaRow(e Entry) []any {
	score := func(stage int) any {
		if v, ok := e.Score(stage); ok {
			return v
		}
		return ""
	}
	slides, pitch := 0, ""
	if e.Deck != nil {
		slides, pitch = len(e.Deck.Slides), e.Deck.OneLinePitch
	}
	return []any{
		e.Idea.ID,
		e.Idea.Title,
		e.Idea.TargetUsers,
		string(e.Idea.Status),
		score(types.StageProblemValidation),
		score(types.StageMarketSizing),
		score(types.StageImpactAssessment),
		score(types.StageFeasibility),
		slides,
		pitch,
		e.Idea.StageEnteredAt.Format("2006-01-02 15:04"),
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

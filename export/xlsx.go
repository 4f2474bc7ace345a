package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	conversationSheet = "Conversation"
	infoSheet         = "Info"
)

// xlsx writes one row per message plus an Info sheet with the title and
// conversation metadata.
func (e *Exporter) xlsx(msgs []Message, meta Metadata) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", conversationSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(conversationSheet, "A1", &[]any{"Role", "Content", "Timestamp"}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(conversationSheet, "A1", "C1", bold); err != nil {
		return nil, err
	}
	for i, m := range msgs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		ts := ""
		if !m.Timestamp.IsZero() {
			ts = e.cfg.formatTime(m.Timestamp)
		}
		if err := f.SetSheetRow(conversationSheet, cell, &[]any{role(m), flatten(m), ts}); err != nil {
			return nil, err
		}
	}
	if len(msgs) > 0 {
		last, _ := excelize.CoordinatesToCellName(2, len(msgs)+1)
		if err := f.SetCellStyle(conversationSheet, "B2", last, wrap); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(conversationSheet, "A", "A", 12)
	_ = f.SetColWidth(conversationSheet, "B", "B", 80)
	_ = f.SetColWidth(conversationSheet, "C", "C", 24)

	rows := [][2]string{}
	if meta.Title != "" {
		rows = append(rows, [2]string{"Title", meta.Title})
	}
	rows = append(rows, e.metaLines(meta)...)
	rows = append(rows, [2]string{"Messages", fmt.Sprint(len(msgs))})
	if _, err := f.NewSheet(infoSheet); err != nil {
		return nil, err
	}
	for i, kv := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(infoSheet, cell, &[]any{kv[0], kv[1]}); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(infoSheet, "A", "A", 16)
	_ = f.SetColWidth(infoSheet, "B", "B", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

package stats

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX renders the aggregator's current snapshot and time series as
// a workbook: a "Summary" sheet with cumulative totals and per-metric
// means/stddevs side by side for both strategies, and a "Time Series"
// sheet with one row per batch. Supplements §4.8's CSV log with a
// human-readable artifact (SPEC_FULL.md's report-export addition),
// grounded on the reference report service's excelize generator.
func (a *Aggregator) ExportXLSX() ([]byte, error) {
	snap := a.AggregateStats()
	series := a.TimeSeries()

	f := excelize.NewFile()
	defer f.Close()
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	writeSummarySheet(f, "Summary", headerStyle, snap)
	writeTimeSeriesSheet(f, "Time Series", headerStyle, series)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("stats: write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, sheet string, headerStyle int, snap Snapshot) {
	f.NewSheet(sheet)

	row := 1
	f.SetCellValue(sheet, cellAddr("A", row), "SAGIN Routing Comparison")
	f.MergeCell(sheet, cellAddr("A", row), cellAddr("C", row))
	row += 2

	f.SetCellValue(sheet, cellAddr("A", row), "Totals")
	f.SetCellStyle(sheet, cellAddr("A", row), cellAddr("C", row), headerStyle)
	row++
	for _, kv := range [][2]any{
		{"Total Requests", snap.TotalRequests},
		{"Agent Success Rate (%)", snap.AgentSuccessRate},
		{"Planner Success Rate (%)", snap.PlannerSuccessRate},
		{"Agent Win Rate (%)", snap.AgentWinRate},
		{"Planner Win Rate (%)", snap.PlannerWinRate},
		{"Draw Rate (%)", snap.DrawRate},
	} {
		f.SetCellValue(sheet, cellAddr("A", row), kv[0])
		f.SetCellValue(sheet, cellAddr("B", row), kv[1])
		row++
	}
	row++

	f.SetCellValue(sheet, cellAddr("A", row), "Metric")
	f.SetCellValue(sheet, cellAddr("B", row), "Agent")
	f.SetCellValue(sheet, cellAddr("C", row), "Planner")
	f.SetCellStyle(sheet, cellAddr("A", row), cellAddr("C", row), headerStyle)
	row++

	metricRows := []struct {
		name           string
		agent, planner float64
	}{
		{"Avg Hops", snap.Agent.AvgHops, snap.Planner.AvgHops},
		{"Avg Latency (ms)", snap.Agent.AvgLatency, snap.Planner.AvgLatency},
		{"Avg Uplink", snap.Agent.AvgUplink, snap.Planner.AvgUplink},
		{"Avg Downlink", snap.Agent.AvgDownlink, snap.Planner.AvgDownlink},
		{"Avg Reliability", snap.Agent.AvgReliability, snap.Planner.AvgReliability},
		{"Avg CPU", snap.Agent.AvgCPU, snap.Planner.AvgCPU},
		{"Avg Power", snap.Agent.AvgPower, snap.Planner.AvgPower},
		{"Uplink StdDev", snap.Agent.UplinkStdDev, snap.Planner.UplinkStdDev},
		{"Downlink StdDev", snap.Agent.DownlinkStdDev, snap.Planner.DownlinkStdDev},
		{"CPU StdDev", snap.Agent.CPUStdDev, snap.Planner.CPUStdDev},
		{"Power StdDev", snap.Agent.PowerStdDev, snap.Planner.PowerStdDev},
	}
	for _, mr := range metricRows {
		f.SetCellValue(sheet, cellAddr("A", row), mr.name)
		f.SetCellValue(sheet, cellAddr("B", row), mr.agent)
		f.SetCellValue(sheet, cellAddr("C", row), mr.planner)
		row++
	}

	f.SetColWidth(sheet, "A", "C", 22)
}

func writeTimeSeriesSheet(f *excelize.File, sheet string, headerStyle int, series []Batch) {
	f.NewSheet(sheet)

	headers := []string{"Batch", "Agent Win Rate (%)", "Planner Win Rate (%)", "Draw Rate (%)"}
	for i, h := range headers {
		f.SetCellValue(sheet, cellAddr(string(rune('A'+i)), 1), h)
	}
	f.SetCellStyle(sheet, "A1", "D1", headerStyle)

	for i, b := range series {
		row := i + 2
		f.SetCellValue(sheet, cellAddr("A", row), b.Name)
		f.SetCellValue(sheet, cellAddr("B", row), b.AgentWinRate)
		f.SetCellValue(sheet, cellAddr("C", row), b.PlannerWinRate)
		f.SetCellValue(sheet, cellAddr("D", row), b.DrawRate)
	}

	f.SetColWidth(sheet, "A", "D", 20)
}

func cellAddr(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

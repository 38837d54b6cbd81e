package stats

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// csvHeader is the durable log's column order. Column order matters:
// replay compares it against the on-disk file's own header and starts a
// fresh file if they disagree, same as the reference service's
// _load_from_log guard.
var csvHeader = []string{
	"timestamp", "request_id",
	"agent_success", "planner_success", "agent_hops", "planner_hops",
	"agent_latency", "agent_uplink", "agent_downlink", "agent_reliability", "agent_cpu", "agent_power",
	"planner_latency", "planner_uplink", "planner_downlink", "planner_reliability", "planner_cpu", "planner_power",
}

// logRow is one durable-log record: the inputs needed to replay a
// request into the in-memory aggregator without re-deriving the winner
// from a pipeline.Record (which replay never has).
type logRow struct {
	Timestamp time.Time
	RequestID string

	AgentSuccess   bool
	PlannerSuccess bool
	Agent          strategyMetrics
	Planner        strategyMetrics
}

func (r logRow) marshal() []string {
	return []string{
		strconv.FormatInt(r.Timestamp.UnixMilli(), 10),
		r.RequestID,
		strconv.FormatBool(r.AgentSuccess),
		strconv.FormatBool(r.PlannerSuccess),
		strconv.Itoa(len(r.Agent.path)),
		strconv.Itoa(len(r.Planner.path)),
		strconv.FormatFloat(r.Agent.latency, 'f', -1, 64),
		strconv.FormatFloat(r.Agent.uplink, 'f', -1, 64),
		strconv.FormatFloat(r.Agent.downlink, 'f', -1, 64),
		strconv.FormatFloat(r.Agent.reliability, 'f', -1, 64),
		strconv.FormatFloat(r.Agent.cpu, 'f', -1, 64),
		strconv.FormatFloat(r.Agent.power, 'f', -1, 64),
		strconv.FormatFloat(r.Planner.latency, 'f', -1, 64),
		strconv.FormatFloat(r.Planner.uplink, 'f', -1, 64),
		strconv.FormatFloat(r.Planner.downlink, 'f', -1, 64),
		strconv.FormatFloat(r.Planner.reliability, 'f', -1, 64),
		strconv.FormatFloat(r.Planner.cpu, 'f', -1, 64),
		strconv.FormatFloat(r.Planner.power, 'f', -1, 64),
	}
}

// unmarshalLogRow parses one CSV data row back into a logRow. The
// replayed row's path fields are placeholders of the recorded length,
// since only hop count (not the actual node ids) survives the round
// trip through the durable log.
func unmarshalLogRow(fields []string) (logRow, error) {
	if len(fields) != len(csvHeader) {
		return logRow{}, fmt.Errorf("stats: row has %d fields, want %d", len(fields), len(csvHeader))
	}
	var r logRow
	var err error
	parse := func(s string) float64 {
		v, e := strconv.ParseFloat(s, 64)
		if e != nil && err == nil {
			err = e
		}
		return v
	}
	parseInt := func(s string) int {
		v, e := strconv.Atoi(s)
		if e != nil && err == nil {
			err = e
		}
		return v
	}

	tsMillis := parseInt(fields[0])
	r.Timestamp = time.UnixMilli(int64(tsMillis))
	r.RequestID = fields[1]
	r.AgentSuccess = fields[2] == "true"
	r.PlannerSuccess = fields[3] == "true"
	r.Agent.path = make([]string, parseInt(fields[4]))
	r.Planner.path = make([]string, parseInt(fields[5]))
	r.Agent.latency = parse(fields[6])
	r.Agent.uplink = parse(fields[7])
	r.Agent.downlink = parse(fields[8])
	r.Agent.reliability = parse(fields[9])
	r.Agent.cpu = parse(fields[10])
	r.Agent.power = parse(fields[11])
	r.Planner.latency = parse(fields[12])
	r.Planner.uplink = parse(fields[13])
	r.Planner.downlink = parse(fields[14])
	r.Planner.reliability = parse(fields[15])
	r.Planner.cpu = parse(fields[16])
	r.Planner.power = parse(fields[17])

	if err != nil {
		return logRow{}, fmt.Errorf("stats: parse row: %w", err)
	}
	return r, nil
}

// csvLog is the durable append-only log backing the aggregator, grounded
// on the reference StatsManager's csv.DictWriter/DictReader discipline
// and reusing the reference audit file logger's buffered-append idiom.
type csvLog struct {
	path string
	f    *os.File
	w    *csv.Writer
}

// openCSVLog opens (or creates) the log at path. If the file already
// exists with a header that doesn't match csvHeader, it is truncated and
// restarted rather than appended to, matching the reference
// "header incorrect: restart" guard.
func openCSVLog(path string) (*csvLog, error) {
	if path == "" {
		path = "stats.csv"
	}

	if existing, err := os.ReadFile(path); err == nil && len(existing) > 0 {
		r := csv.NewReader(bytes.NewReader(existing))
		header, err := r.Read()
		if err != nil || !headerEqual(header, csvHeader) {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("stats: discard mismatched log: %w", err)
			}
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("stats: open log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stats: stat log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("stats: write log header: %w", err)
		}
		w.Flush()
	}
	return &csvLog{path: path, f: f, w: w}, nil
}

func headerEqual(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// replayRows reads every data row currently on disk, for rehydration on
// startup. Must be called before the first Append.
func (l *csvLog) replayRows() ([]logRow, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("stats: read log for replay: %w", err)
	}
	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		return nil, nil // empty file, nothing to replay
	}
	if !headerEqual(header, csvHeader) {
		return nil, nil
	}

	var rows []logRow
	for {
		fields, err := r.Read()
		if err != nil {
			break
		}
		row, err := unmarshalLogRow(fields)
		if err != nil {
			continue // skip unparsable rows rather than aborting the whole replay
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Append writes one row and flushes immediately so the log survives a
// crash between requests.
func (l *csvLog) Append(row logRow) error {
	if err := l.w.Write(row.marshal()); err != nil {
		return fmt.Errorf("stats: write log row: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *csvLog) Close() error {
	l.w.Flush()
	return l.f.Close()
}

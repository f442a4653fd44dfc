package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/wesm/flowstate/internal/db"
	"github.com/wesm/flowstate/internal/flow"
	"github.com/wesm/flowstate/internal/timeutil"
)

// sessionNamespace seeds the name-based IDs given to exported
// sessions that carry no id of their own.
var sessionNamespace = uuid.NewSHA1(
	uuid.NameSpaceURL, []byte("https://github.com/wesm/flowstate/sessions"),
)

// Record kinds accepted in export files.
const (
	kindSession = "session"
	kindTask    = "task"
)

// Batch is the decoded content of one export file.
type Batch struct {
	Sessions []db.Session
	Tasks    []db.Task
	// Rejected lists records that could not be used, one message
	// per record.
	Rejected []string
}

// Decoder turns export records into store rows.
type Decoder struct {
	// DefaultUser owns records that do not name a user.
	DefaultUser string
}

// DecodeJSONL reads one record per line.
func (d Decoder) DecodeJSONL(r io.Reader, source string) (Batch, error) {
	var b Batch
	lr := newLineReader(r, maxLineSize)
	for {
		line, n, ok, err := lr.next()
		if err != nil {
			return b, fmt.Errorf("reading %s: %w", source, err)
		}
		if !ok {
			break
		}
		if !gjson.Valid(line) {
			b.Rejected = append(b.Rejected,
				fmt.Sprintf("%s:%d: invalid json", source, n))
			continue
		}
		d.addRecord(&b, gjson.Parse(line), fmt.Sprintf("%s:%d", source, n), source)
	}
	if lr.oversized > 0 {
		b.Rejected = append(b.Rejected, fmt.Sprintf(
			"%s: %d oversized line(s) dropped", source, lr.oversized,
		))
	}
	return b, nil
}

// DecodeJSON reads a whole-document export: a single record, an
// array of records, or an object with "sessions" and "tasks"
// arrays.
func (d Decoder) DecodeJSON(r io.Reader, source string) (Batch, error) {
	var b Batch
	data, err := io.ReadAll(r)
	if err != nil {
		return b, fmt.Errorf("reading %s: %w", source, err)
	}
	data = bytes.TrimSpace(data)
	if !gjson.ValidBytes(data) {
		return b, fmt.Errorf("%s: invalid json", source)
	}

	doc := gjson.ParseBytes(data)
	switch {
	case doc.IsArray():
		d.addArray(&b, doc, "", source)
	case doc.Get("sessions").IsArray() || doc.Get("tasks").IsArray():
		d.addArray(&b, doc.Get("tasks"), kindTask, source)
		d.addArray(&b, doc.Get("sessions"), kindSession, source)
	case doc.IsObject():
		d.addRecord(&b, doc, source, source)
	default:
		return b, fmt.Errorf("%s: expected object or array", source)
	}
	return b, nil
}

func (d Decoder) addArray(b *Batch, arr gjson.Result, kind, source string) {
	i := 0
	arr.ForEach(func(_, v gjson.Result) bool {
		where := fmt.Sprintf("%s[%d]", source, i)
		i++
		if kind != "" && !v.Get("type").Exists() {
			d.addKind(b, v, kind, where, source)
			return true
		}
		d.addRecord(b, v, where, source)
		return true
	})
}

func (d Decoder) addRecord(b *Batch, v gjson.Result, where, source string) {
	kind := strings.ToLower(v.Get("type").Str)
	if kind == "" {
		kind = kindSession
	}
	d.addKind(b, v, kind, where, source)
}

func (d Decoder) addKind(b *Batch, v gjson.Result, kind, where, source string) {
	if !v.IsObject() {
		b.Rejected = append(b.Rejected, where+": not an object")
		return
	}
	switch kind {
	case kindSession:
		s, err := d.session(v)
		if err != nil {
			b.Rejected = append(b.Rejected, fmt.Sprintf("%s: %v", where, err))
			return
		}
		row := db.FromFlow(s)
		if source != "" {
			row.SourcePath = &source
		}
		b.Sessions = append(b.Sessions, row)
	case kindTask:
		t, err := d.task(v)
		if err != nil {
			b.Rejected = append(b.Rejected, fmt.Sprintf("%s: %v", where, err))
			return
		}
		b.Tasks = append(b.Tasks, t)
	default:
		b.Rejected = append(b.Rejected,
			fmt.Sprintf("%s: unknown record type %q", where, kind))
	}
}

// field returns the first of the given keys present in v. Exports
// use camelCase; snake_case is accepted too.
func field(v gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := v.Get(k); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// instant reads an RFC3339 string or epoch milliseconds.
func instant(r gjson.Result) (time.Time, bool) {
	switch r.Type {
	case gjson.String:
		return timeutil.Parse(r.Str)
	case gjson.Number:
		return time.UnixMilli(r.Int()).UTC(), true
	}
	return time.Time{}, false
}

func (d Decoder) session(v gjson.Result) (flow.Session, error) {
	var s flow.Session

	s.UserID = field(v, "userId", "user_id").String()
	if s.UserID == "" {
		s.UserID = d.DefaultUser
	}

	var ok bool
	if s.StartedAt, ok = instant(field(v, "startedAt", "started_at")); !ok {
		return s, fmt.Errorf("missing or unreadable startedAt")
	}
	if s.EndedAt, ok = instant(field(v, "endedAt", "ended_at")); !ok {
		return s, fmt.Errorf("missing or unreadable endedAt")
	}

	s.BreakDurationSeconds = int(
		field(v, "breakDurationSeconds", "break_duration_seconds").Int(),
	)
	if dur := field(v, "durationSeconds", "duration_seconds"); dur.Exists() {
		s.DurationSeconds = int(dur.Int())
	} else {
		derived := int(s.EndedAt.Sub(s.StartedAt).Seconds()) -
			s.BreakDurationSeconds
		s.DurationSeconds = max(derived, 0)
	}

	if task := field(v, "taskId", "task_id").String(); task != "" {
		s.TaskID = &task
	}

	s.ID = field(v, "id").String()
	if s.ID == "" {
		s.ID = SessionID(s.UserID, s.StartedAt, s.EndedAt)
	}

	if err := db.ValidateSession(s); err != nil {
		return s, err
	}
	return s, nil
}

func (d Decoder) task(v gjson.Result) (db.Task, error) {
	t := db.Task{
		ID:     field(v, "id", "taskId", "task_id").String(),
		UserID: field(v, "userId", "user_id").String(),
		Title:  strings.TrimSpace(field(v, "title", "name").String()),
	}
	if t.UserID == "" {
		t.UserID = d.DefaultUser
	}
	if t.ID == "" {
		return t, fmt.Errorf("task without id")
	}
	if t.Title == "" {
		return t, fmt.Errorf("task %s without title", t.ID)
	}
	return t, nil
}

// SessionID derives a stable ID from a session's owner and bounds,
// so re-importing the same export updates rows instead of
// duplicating them.
func SessionID(userID string, start, end time.Time) string {
	name := userID + "|" + timeutil.Format(start) + "|" + timeutil.Format(end)
	return uuid.NewSHA1(sessionNamespace, []byte(name)).String()
}

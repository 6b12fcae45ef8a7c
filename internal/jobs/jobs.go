// Package jobs maps job abbreviations to numeric ids and localized names.
package jobs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Table is a bidirectional job lookup: abbreviation <-> id <-> name.
type Table struct {
	codeToID map[string]int
	idToCode map[int]string
	names    map[string]string
}

// ClassJob.csv starts with key, column-name and type rows.
const (
	headerRows = 3
	minColumns = 32
	adventurer = "冒险者"
)

// Load reads a ClassJob.csv export from path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open job table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads ClassJob.csv rows from r. Malformed rows are skipped.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := newTable()
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read job table: %w", err)
		}
		if line < headerRows || len(rec) < minColumns {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			continue
		}
		name, code := rec[1], strings.TrimSpace(rec[2])
		if code == "" || name == adventurer {
			continue
		}
		t.add(id, code, name)
	}
	if len(t.codeToID) == 0 {
		return nil, fmt.Errorf("job table has no usable rows")
	}
	return t, nil
}

// LoadOrFallback loads the table at path and falls back to the built-in
// table when the file is missing or unreadable.
func LoadOrFallback(path string, log *slog.Logger) *Table {
	t, err := Load(path)
	if err != nil {
		log.Warn("job table unavailable, using built-in mapping", "path", path, "error", err)
		return Fallback()
	}
	log.Debug("job table loaded", "path", path, "jobs", len(t.codeToID))
	return t
}

// Fallback returns the built-in table of base classes and jobs.
func Fallback() *Table {
	t := newTable()
	for _, j := range builtin {
		t.add(j.id, j.code, j.name)
	}
	return t
}

func newTable() *Table {
	return &Table{
		codeToID: make(map[string]int),
		idToCode: make(map[int]string),
		names:    make(map[string]string),
	}
}

func (t *Table) add(id int, code, name string) {
	code = strings.ToUpper(code)
	t.codeToID[code] = id
	t.idToCode[id] = code
	t.names[code] = name
}

// CodesFromString splits a slot job string such as "WHM SCH" into
// upper-cased abbreviations.
func CodesFromString(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	codes := make([]string, 0, len(fields))
	for _, f := range fields {
		codes = append(codes, strings.ToUpper(f))
	}
	return codes
}

// IDsFromCodes maps abbreviations to ids, dropping unknown codes.
func (t *Table) IDsFromCodes(codes []string) []int {
	var ids []int
	for _, c := range codes {
		if id, ok := t.codeToID[strings.ToUpper(strings.TrimSpace(c))]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ID returns the id for an abbreviation.
func (t *Table) ID(code string) (int, bool) {
	id, ok := t.codeToID[strings.ToUpper(code)]
	return id, ok
}

// Code returns the abbreviation for an id.
func (t *Table) Code(id int) (string, bool) {
	c, ok := t.idToCode[id]
	return c, ok
}

// Name returns the localized name for an abbreviation, or the abbreviation
// itself when unknown.
func (t *Table) Name(code string) string {
	if n, ok := t.names[strings.ToUpper(code)]; ok {
		return n
	}
	return code
}

// Len returns the number of jobs in the table.
func (t *Table) Len() int { return len(t.codeToID) }

type builtinJob struct {
	code string
	id   int
	name string
}

var builtin = []builtinJob{
	{"GLA", 1, "剑术师"}, {"PGL", 2, "格斗家"}, {"MRD", 3, "斧术师"}, {"LNC", 4, "枪术师"},
	{"ARC", 5, "弓箭手"}, {"CNJ", 6, "幻术师"}, {"THM", 7, "咒术师"},
	{"PLD", 19, "骑士"}, {"MNK", 20, "武僧"}, {"WAR", 21, "战士"}, {"DRG", 22, "龙骑士"},
	{"BRD", 23, "吟游诗人"}, {"WHM", 24, "白魔法师"}, {"BLM", 25, "黑魔法师"},
	{"ACN", 26, "秘术师"}, {"SMN", 27, "召唤师"}, {"SCH", 28, "学者"},
	{"ROG", 29, "双剑师"}, {"NIN", 30, "忍者"}, {"MCH", 31, "机工士"},
	{"DRK", 32, "暗黑骑士"}, {"AST", 33, "占星术士"}, {"SAM", 34, "武士"},
	{"RDM", 35, "赤魔法师"}, {"BLU", 36, "青魔法师"}, {"GNB", 37, "绝枪战士"},
	{"DNC", 38, "舞者"}, {"RPR", 39, "钐镰客"}, {"SGE", 40, "贤者"},
	{"VPR", 41, "蝰蛇剑士"}, {"PCT", 42, "绘灵法师"},
}

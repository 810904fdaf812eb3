// Command foskshell is an interactive REPL over an in-memory
// fosk.Database, grounded on
// _examples/KartikBazzad-bunbase/docdb/cmd/docdbsh (the teacher
// family's own shell), adapted from a Unix-socket client/server shape
// to a direct in-process one, since FOSK has no server process to
// connect to (spec §1: the library is the product).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	humanize "github.com/dustin/go-humanize"
	isatty "github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/lvendrame/fosk"
)

const historyFile = ".foskshell_history"

func main() {
	idType := flag.String("id-type", "int", "default id generation strategy: int, uuid, or none")
	flag.Parse()

	cfg := fosk.DefaultConfig()
	switch strings.ToLower(*idType) {
	case "uuid":
		cfg.IDType = fosk.IDTypeUUID
	case "none":
		cfg.IDType = fosk.IDTypeNone
	}

	db := fosk.New(cfg)
	interactive := isatty.IsTerminal(os.Stdin.Fd())

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if interactive {
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		fmt.Println("fosk shell — type \\q to quit, \\? for help")
	}

	for {
		prompt := ""
		if interactive {
			prompt = "fosk> "
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				break
			}
			fmt.Fprintln(os.Stderr, "read error:", err)
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "\\") {
			if !runMeta(db, input) {
				break
			}
			continue
		}

		runQuery(db, input)
	}

	if interactive {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
}

// runMeta handles the \d, \d <name>, \load and \q meta-commands of
// SPEC_FULL.md §6.5. It returns false when the shell should exit.
func runMeta(db *fosk.Database, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "\\q", "\\quit":
		return false
	case "\\?", "\\help":
		printHelp()
	case "\\d":
		if len(fields) == 1 {
			listCollections(db)
		} else {
			describeCollection(db, fields[1])
		}
	case "\\load":
		if len(fields) != 3 {
			fmt.Fprintln(os.Stderr, "usage: \\load <collection> <file.json>")
			return true
		}
		loadFile(db, fields[1], fields[2])
	default:
		fmt.Fprintf(os.Stderr, "unknown meta-command: %s\n", fields[0])
	}
	return true
}

func printHelp() {
	fmt.Println(`\d             list collections
\d <name>      show a collection's inferred schema
\load <n> <f>  bulk-load a JSON array file into collection <n>
\q             quit`)
}

func listCollections(db *fosk.Database) {
	names := db.ListCollections()
	sort.Strings(names)
	for _, name := range names {
		coll, ok := db.GetCollection(name)
		if !ok {
			continue
		}
		fmt.Printf("%-24s %s documents\n", name, humanize.Comma(int64(coll.Count())))
	}
}

func describeCollection(db *fosk.Database, name string) {
	schema, ok := db.SchemaOf(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "no such collection: %s\n", name)
		return
	}
	fields := make([]string, 0, len(schema))
	for f := range schema {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Printf("%-24s %s\n", f, schema[f].String())
	}
}

func loadFile(db *fosk.Database, name, path string) {
	coll, ok := db.GetCollection(name)
	if !ok {
		var err error
		coll, err = db.CreateCollection(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return
		}
	}
	if err := coll.LoadFile(path); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return
	}
	fmt.Printf("loaded %s documents into %s\n", humanize.Comma(int64(coll.Count())), name)
}

// runQuery executes input as SQL and prints the result as a table,
// grounded on the same row/byte-count reporting idiom docdbsh's
// commands package uses after a successful request.
func runQuery(db *fosk.Database, sql string) {
	rows, err := db.Query(sql)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return
	}
	printTable(rows)
}

func printTable(rows []map[string]any) {
	if len(rows) == 0 {
		fmt.Println("(0 rows)")
		return
	}

	cols := columnOrder(rows)
	widths := make(map[string]int, len(cols))
	for _, c := range cols {
		widths[c] = len(c)
	}
	rendered := make([][]string, len(rows))
	for i, row := range rows {
		rendered[i] = make([]string, len(cols))
		for j, c := range cols {
			cell := renderCell(row[c])
			rendered[i][j] = cell
			if len(cell) > widths[c] {
				widths[c] = len(cell)
			}
		}
	}

	for i, c := range cols {
		if i > 0 {
			fmt.Print("  ")
		}
		fmt.Print(padRight(c, widths[c]))
	}
	fmt.Println()

	bytes := 0
	for _, row := range rendered {
		for i, cell := range row {
			if i > 0 {
				fmt.Print("  ")
			}
			fmt.Print(padRight(cell, widths[cols[i]]))
			bytes += len(cell)
		}
		fmt.Println()
	}
	fmt.Printf("(%s rows, %s)\n", humanize.Comma(int64(len(rows))), humanize.Bytes(uint64(bytes)))
}

// columnOrder takes the union of every row's keys, sorted, so ragged
// result sets (different rows exposing different fields, which FOSK's
// schema-free documents allow) still print a stable header.
func columnOrder(rows []map[string]any) []string {
	seen := map[string]bool{}
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func renderCell(v any) string {
	if v == nil {
		return "null"
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(raw)
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

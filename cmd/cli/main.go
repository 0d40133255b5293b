package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/nickyhof/ADOBridge"
	"github.com/nickyhof/ADOBridge/core"
	"github.com/nickyhof/ADOBridge/db"
	"github.com/nickyhof/ADOBridge/provider"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the CLI state
type CLI struct {
	engine      *db.Engine
	connection  string
	raw         bool
	out         io.Writer
	history     []string
	historyFile string
}

func main() {
	connection := flag.String("connection", "", "ADO connection string")
	sqlFile := flag.String("sqlFile", "", "SQL file to run as one transaction (non-interactive)")
	charset := flag.String("charset", core.DefaultCharset, "Character set for binary fields")
	raw := flag.Bool("raw", false, "Print result documents as JSON instead of tables")
	flag.Parse()

	printBanner()

	if *connection == "" {
		fmt.Printf("%sError: -connection is required%s\n", ErrorColor, ResetColor)
		os.Exit(1)
	}

	router, err := provider.NewDefaultRouter(nil)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
	engine, err := ADOBridge.Open(router, ADOBridge.WithCharset(*charset)).Engine()
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
	fmt.Printf("%sProvider: %s%s\n", SuccessColor, provider.ParseConnectionString(*connection).Provider(), ResetColor)

	cli := &CLI{
		engine:      engine,
		connection:  *connection,
		raw:         *raw,
		out:         os.Stdout,
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
	}
	cli.loadHistory()

	// Execute SQL file if provided
	if *sqlFile != "" {
		err := cli.importFile(*sqlFile)
		if err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	cli.run()
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("ADOBridge v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   ADO / Jet SQL shell                 ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run() {
	reader := bufio.NewReader(os.Stdin)
	var multiLineBuffer strings.Builder

	for {
		fmt.Print(cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			cli.saveHistory()
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		// Check for special commands (only when not in multi-line mode)
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(input, ".") {
			if cli.handleCommand(input) {
				continue
			}
		}

		// Multi-line support: accumulate until we see a semicolon
		multiLineBuffer.WriteString(input)

		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}

		sql := strings.TrimSuffix(trimmed, ";")
		multiLineBuffer.Reset()

		if strings.TrimSpace(sql) == "" {
			continue
		}

		cli.addToHistory(sql + ";")

		if err := cli.executeStatement(sql); err != nil {
			cli.printError(err)
		}
	}
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}
	return fmt.Sprintf("%sadodb>%s ", PromptColor, ResetColor)
}

// isQuery reports whether sql returns rows. Jet crosstabs start with
// TRANSFORM.
func isQuery(sql string) bool {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "TRANSFORM":
		return true
	}
	return false
}

// dispatch runs one command in process against the CLI's connection.
func (cli *CLI) dispatch(command string, envelope core.Envelope) (any, error) {
	envelope.Connection = cli.connection
	return cli.engine.Dispatch(context.Background(), command, envelope)
}

// executeStatement runs sql as query_v2 or execute and prints the result.
func (cli *CLI) executeStatement(sql string) error {
	if !isQuery(sql) {
		if _, err := cli.dispatch("execute", core.Envelope{SQL: core.Statements{sql}}); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s✓ OK%s\n", SuccessColor, ResetColor)
		return nil
	}

	result, err := cli.dispatch("query_v2", core.Envelope{SQL: core.Statements{sql}, FetchArrays: true})
	if err != nil {
		return err
	}
	return cli.display(result)
}

func (cli *CLI) display(result any) error {
	if cli.raw {
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, string(data))
		return nil
	}
	switch r := result.(type) {
	case db.ArrayResult:
		r.Display(cli.out)
	case db.RecordResult:
		r.Display(cli.out)
	case []db.Record:
		db.RecordResult{ResultSet: r}.Display(cli.out)
	default:
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, string(data))
	}
	return nil
}

// printError prints err the way the worker would classify it.
func (cli *CLI) printError(err error) {
	record := core.RecordOf(err)
	if record.Code != nil {
		fmt.Fprintf(cli.out, "%s✗ %s [%d]: %s%s\n", ErrorColor, record.Kind(), *record.Code, record.Message, ResetColor)
		return
	}
	fmt.Fprintf(cli.out, "%s✗ %s: %s%s\n", ErrorColor, record.Kind(), record.Message, ResetColor)
}

func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))

	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		fmt.Printf("%sGoodbye!%s\n", SuccessColor, ResetColor)
		cli.saveHistory()
		os.Exit(0)

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.showSchema(core.SchemaTables, nil)

	case ".columns":
		if len(parts) > 1 {
			cli.showSchema(core.SchemaColumns, []any{nil, nil, parts[1]})
		} else {
			fmt.Fprintf(cli.out, "%s✗ Usage: .columns <table>%s\n", ErrorColor, ResetColor)
		}

	case ".clear", ".cls":
		fmt.Print("\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "ADOBridge version %s\n", Version)

	case ".import":
		if len(parts) > 1 {
			if err := cli.importFile(parts[1]); err != nil {
				cli.printError(err)
			}
		} else {
			fmt.Fprintf(cli.out, "%s✗ Usage: .import <file.sql>%s\n", ErrorColor, ResetColor)
		}

	default:
		fmt.Fprintf(cli.out, "%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) printHelp() {
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  .help, .h          Show this help message")
	fmt.Fprintln(cli.out, "  .quit, .exit       Exit the CLI")
	fmt.Fprintln(cli.out, "  .tables            List tables")
	fmt.Fprintln(cli.out, "  .columns <table>   List the columns of a table")
	fmt.Fprintln(cli.out, "  .import <file>     Run a SQL file as one transaction")
	fmt.Fprintln(cli.out, "  .history           Show command history")
	fmt.Fprintln(cli.out, "  .clear             Clear the screen")
	fmt.Fprintln(cli.out, "  .version           Show version info")
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sStatements:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  SELECT and TRANSFORM statements print a table; anything else is executed.")
	fmt.Fprintln(cli.out, "  End each statement with ';'.")
	fmt.Fprintln(cli.out)
}

func (cli *CLI) showSchema(schema core.SchemaType, criteria []any) {
	result, err := cli.dispatch("schema", core.Envelope{Type: int(schema), Criteria: criteria})
	if err != nil {
		cli.printError(err)
		return
	}
	if err := cli.display(result); err != nil {
		cli.printError(err)
	}
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	// Limit history size
	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".adodb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	// Save last 1000 entries
	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile runs the statements of a SQL file as one transaction
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	statements := splitStatements(string(data))
	if len(statements) == 0 {
		fmt.Fprintf(cli.out, "%s✓ Nothing to import%s\n", SuccessColor, ResetColor)
		return nil
	}

	if _, err := cli.dispatch("transaction", core.Envelope{SQL: statements}); err != nil {
		fmt.Fprintf(cli.out, "%s✗ Import rolled back: %d statement(s)%s\n", ErrorColor, len(statements), ResetColor)
		return err
	}

	for i, stmt := range statements {
		fmt.Fprintf(cli.out, "%s[%d] ✓ %s%s\n", SuccessColor, i+1, truncate(stmt, 50), ResetColor)
	}
	fmt.Fprintf(cli.out, "\n%s✓ Import complete: %d statement(s)%s\n", SuccessColor, len(statements), ResetColor)
	return nil
}

// splitStatements splits SQL content into individual statements
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(content); i++ {
		ch := content[i]

		// Jet doubles quotes inside literals, so a closing quote followed by
		// another one toggles twice and stays in the string.
		if ch == '\'' || ch == '"' {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
		}

		// Handle comments
		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			continue
		}

		// Statement separator
		if !inString && ch == ';' {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	// Handle last statement without semicolon
	stmt := strings.TrimSpace(current.String())
	if stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"dbhealth/internal/model"
)

// Approver decides which advisory commands are approved. Approved commands
// are only recorded in the report; nothing is executed.
type Approver interface {
	Approve(ctx context.Context, commands []model.AdvisoryCommand) ([]model.AdvisoryCommand, error)
}

// AutoApprover approves every command.
type AutoApprover struct{}

// Approve returns all commands.
func (AutoApprover) Approve(_ context.Context, commands []model.AdvisoryCommand) ([]model.AdvisoryCommand, error) {
	return commands, nil
}

// NoopApprover approves nothing.
type NoopApprover struct{}

// Approve returns no commands.
func (NoopApprover) Approve(context.Context, []model.AdvisoryCommand) ([]model.AdvisoryCommand, error) {
	return nil, nil
}

// ConsoleApprover asks for a Y/N answer per command.
type ConsoleApprover struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsoleApprover creates an approver reading answers from in and writing prompts to out.
func NewConsoleApprover(in io.Reader, out io.Writer) *ConsoleApprover {
	return &ConsoleApprover{in: bufio.NewReader(in), out: out}
}

// Approve prompts for each command until a Y or N answer is given.
// When the input ends, the remaining commands are skipped.
func (a *ConsoleApprover) Approve(ctx context.Context, commands []model.AdvisoryCommand) ([]model.AdvisoryCommand, error) {
	if len(commands) == 0 {
		fmt.Fprintln(a.out, "No optimization commands suggested.")
		return nil, nil
	}

	fmt.Fprintln(a.out, "\nSuggested optimization commands:")

	var approved []model.AdvisoryCommand
	for _, cmd := range commands {
		if err := ctx.Err(); err != nil {
			return approved, err
		}

		a.printCommand(cmd)

		yes, ok := a.ask()
		if !ok {
			fmt.Fprintln(a.out, "\nInput closed, skipping remaining commands.")
			return approved, nil
		}
		if yes {
			approved = append(approved, cmd)
			fmt.Fprintln(a.out, "[+] Command approved")
		} else {
			fmt.Fprintln(a.out, "[-] Command skipped")
		}
	}
	return approved, nil
}

func (a *ConsoleApprover) printCommand(cmd model.AdvisoryCommand) {
	params, err := json.MarshalIndent(cmd.Parameters, "", "  ")
	if err != nil {
		params = []byte(fmt.Sprint(cmd.Parameters))
	}

	fmt.Fprintln(a.out, "\n"+strings.Repeat("=", 50))
	fmt.Fprintf(a.out, "Command ID: %s\n", cmd.ID)
	fmt.Fprintf(a.out, "Action: %s\n", cmd.Action)
	fmt.Fprintf(a.out, "Priority: %s\n", cmd.Priority)
	fmt.Fprintf(a.out, "Target service: %s\n", cmd.TargetService)
	fmt.Fprintf(a.out, "Parameters: %s\n", params)
	fmt.Fprintf(a.out, "Rationale: %s\n", cmd.Rationale)
}

// ask returns the answer and false once the input is exhausted.
func (a *ConsoleApprover) ask() (yes bool, ok bool) {
	for {
		fmt.Fprint(a.out, "\nApprove this command? (Y/N): ")
		line, err := a.in.ReadString('\n')
		switch strings.ToUpper(strings.TrimSpace(line)) {
		case "Y":
			return true, true
		case "N":
			return false, true
		}
		if err != nil {
			return false, false
		}
		fmt.Fprintln(a.out, "Please enter Y or N.")
	}
}

// RecordExecutions records the decision taken on every command, in command order.
func RecordExecutions(commands, approved []model.AdvisoryCommand, decidedAt time.Time) []model.ExecutionRecord {
	ok := make(map[string]bool, len(approved))
	for _, c := range approved {
		ok[c.ID] = true
	}

	records := make([]model.ExecutionRecord, 0, len(commands))
	for _, c := range commands {
		status := model.ExecutionSkipped
		if ok[c.ID] {
			status = model.ExecutionApproved
		}
		records = append(records, model.ExecutionRecord{
			CommandID: c.ID,
			Action:    c.Action,
			Status:    status,
			DecidedAt: decidedAt,
		})
	}
	return records
}

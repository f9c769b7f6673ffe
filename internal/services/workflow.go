package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tosctl/internal/models"
	"tosctl/internal/providers"
	"tosctl/internal/structures"
	"tosctl/internal/tos"
)

// Printer receives the workflow's output events. Rendering is external;
// the engine only emits messages with a style hint.
type Printer interface {
	Print(message string, style string)
	PrintJSON(v interface{})
}

// Style hints emitted with printer events.
const (
	StylePlain   = ""
	StyleInfo    = "info"
	StyleSuccess = "success"
	StyleWarning = "warning"
	StyleError   = "error"
)

// NoopPrinter suppresses all output. Used by host pre-command hooks.
type NoopPrinter struct{}

func (NoopPrinter) Print(_ string, _ string) {}
func (NoopPrinter) PrintJSON(_ interface{})  {}

// Decision is the terminal state of the acceptance state machine for one
// channel.
type Decision int

const (
	DecisionUndecided Decision = iota
	DecisionAccepted
	DecisionRejected
	DecisionDeferred
)

const autoAcceptedTemplate = "By accessing %s with auto acceptance enabled " +
	"for this repository you acknowledge and agree to the Terms of Service:\n%s"

const ciAcceptedTemplate = "By accessing %s via CI " +
	"for this repository you acknowledge and agree to the Terms of Service:\n%s"

// WorkflowOptions carries the per-invocation inputs of the acceptance
// workflow.
type WorkflowOptions struct {
	ToSRoot      string
	CacheTimeout time.Duration
	AutoAccept   bool
	AlwaysYes    bool
	JSONMode     bool
	Verbose      bool
}

type WorkflowInterface interface {
	Run(ctx context.Context, channels []models.Channel, opts WorkflowOptions, printer Printer) (map[string]*models.LocalMetadata, error)
	CheckToS(ctx context.Context, channels []models.Channel, opts WorkflowOptions) error
}

// Workflow resolves pending Terms of Service decisions. Per channel the
// transitions are, in priority order: auto-accept, CI accept,
// non-interactive deferral, interactive prompt. Decisions are persisted
// with the latest available document.
type Workflow struct {
	service ToSServiceInterface
	env     *structures.EnvContext
	logger  providers.Logger
	input   io.Reader
	reader  *bufio.Reader
}

func NewWorkflow(service ToSServiceInterface, env *structures.EnvContext, logger providers.Logger) *Workflow {
	return &Workflow{
		service: service,
		env:     env,
		logger:  logger,
		input:   os.Stdin,
	}
}

// Run drives the batch workflow. If any channel already holds a standing
// rejection it aborts before touching any pending channel. Pending channels
// are then resolved one by one; deferred and newly rejected channels are
// reported together in one error each.
func (w *Workflow) Run(ctx context.Context, channels []models.Channel, opts WorkflowOptions, printer Printer) (map[string]*models.LocalMetadata, error) {
	if opts.Verbose {
		printer.Print("Gathering channels...", StyleInfo)
	}

	result, err := w.service.Gather(ctx, channels, opts.ToSRoot, opts.CacheTimeout)
	if err != nil {
		return nil, err
	}

	if len(result.Rejected) > 0 {
		printer.Print(fmt.Sprintf("%d channel Terms of Service rejected", len(result.Rejected)), StyleError)
		return nil, tos.NewRejectedError(result.Rejected...)
	}

	if len(result.Pending) > 0 {
		if w.env.CI {
			printer.Print("CI detected...", StyleWarning)
		} else if w.env.Notebook {
			printer.Print("Notebook detected...", StyleWarning)
		}
	}

	var deferred, rejected []models.Channel
	for _, pending := range result.Pending {
		decision := w.decide(pending.Channel, pending.Pair, opts, printer)
		switch decision {
		case DecisionAccepted:
			pair, err := w.service.Accept(ctx, pending.Channel, opts.ToSRoot, opts.CacheTimeout)
			if err != nil {
				return nil, err
			}
			result.Accepted[pending.Channel.BaseURL()] = pair.Local
		case DecisionRejected:
			if _, err := w.service.Reject(ctx, pending.Channel, opts.ToSRoot, opts.CacheTimeout); err != nil {
				return nil, err
			}
			rejected = append(rejected, pending.Channel)
		case DecisionDeferred:
			deferred = append(deferred, pending.Channel)
		}
	}

	if len(deferred) > 0 {
		return nil, tos.NewNonInteractiveError(deferred...)
	}
	if len(rejected) > 0 {
		printer.Print(fmt.Sprintf("%d channel Terms of Service rejected", len(rejected)), StyleError)
		return nil, tos.NewRejectedError(rejected...)
	}

	if opts.Verbose || len(result.Accepted) > 0 {
		printer.Print(fmt.Sprintf("%d channel Terms of Service accepted", len(result.Accepted)), StyleSuccess)
	}
	if opts.JSONMode {
		printer.PrintJSON(result.Accepted)
	}
	return result.Accepted, nil
}

// CheckToS is the host pre-command hook: it runs the workflow with output
// suppressed and surfaces only the terminal errors.
func (w *Workflow) CheckToS(ctx context.Context, channels []models.Channel, opts WorkflowOptions) error {
	opts.JSONMode = false
	_, err := w.Run(ctx, channels, opts, NoopPrinter{})
	return err
}

// decide resolves one pending channel to a terminal state. No decision is
// persisted here; persistence happens in Run.
func (w *Workflow) decide(channel models.Channel, pair *models.Pair, opts WorkflowOptions, printer Printer) Decision {
	if opts.AutoAccept {
		printer.Print(fmt.Sprintf(autoAcceptedTemplate, channel, pair.LatestText()), StyleWarning)
		w.logger.Infof(providers.TypeWorkflow, "Auto-accepted Terms of Service for %s", channel)
		return DecisionAccepted
	}

	if w.env.CI {
		printer.Print(fmt.Sprintf(ciAcceptedTemplate, channel, pair.LatestText()), StyleWarning)
		w.logger.Infof(providers.TypeWorkflow, "CI-accepted Terms of Service for %s", channel)
		return DecisionAccepted
	}

	if opts.JSONMode || w.env.NonInteractive(opts.AlwaysYes) {
		w.logger.Debugf(providers.TypeWorkflow, "Deferred Terms of Service decision for %s (non-interactive)", channel)
		return DecisionDeferred
	}

	return w.prompt(channel, pair, printer)
}

// prompt asks the user to accept, reject, or view the Terms of Service.
// Viewing prints the latest text and re-asks without the view choice; the
// loop is explicit so adversarial input cannot grow the stack.
func (w *Workflow) prompt(channel models.Channel, pair *models.Pair, printer Printer) Decision {
	prologue := ""
	if pair.Outdated() {
		state := "rejected"
		if pair.Accepted() {
			state = "accepted"
		}
		prologue = fmt.Sprintf(
			"The Terms of Service for %s was previously %s. An updated Terms of Service is now available.\n",
			channel, state,
		)
	}

	choices := []string{"(a)ccept", "(r)eject", "(v)iew"}
	for {
		question := fmt.Sprintf("%sDo you accept the Terms of Service (ToS) for %s? [%s]",
			prologue, channel, strings.Join(choices, "/"))
		answer, err := w.ask(question, choices, printer)
		if err != nil {
			// input exhausted mid-prompt; treat as non-interactive
			w.logger.Warnf(providers.TypeWorkflow, "Prompt aborted for %s: %s", channel, err)
			return DecisionDeferred
		}

		switch answer {
		case "accept":
			return DecisionAccepted
		case "reject":
			return DecisionRejected
		case "view":
			printer.Print(pair.LatestText(), StylePlain)
			prologue = ""
			choices = []string{"(a)ccept", "(r)eject"}
		}
	}
}

// ask reads one response and fuzzy-matches it against the choices: braces
// are ignored and any unambiguous prefix of a choice is enough.
func (w *Workflow) ask(question string, choices []string, printer Printer) (string, error) {
	if w.reader == nil {
		w.reader = bufio.NewReader(w.input)
	}
	for {
		printer.Print(question, StylePlain)
		line, err := w.reader.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		if answer, ok := matchChoice(line, choices); ok {
			return answer, nil
		}
		printer.Print("Please select one of the available options", StyleError)
		if err != nil {
			return "", err
		}
	}
}

func matchChoice(value string, choices []string) (string, bool) {
	value = strings.ToLower(stripBraces(value))
	if value == "" {
		return "", false
	}
	for _, choice := range choices {
		choice = strings.ToLower(stripBraces(choice))
		if strings.HasPrefix(choice, value) {
			return choice, true
		}
	}
	return "", false
}

func stripBraces(value string) string {
	value = strings.ReplaceAll(value, "(", "")
	value = strings.ReplaceAll(value, ")", "")
	return strings.TrimSpace(value)
}

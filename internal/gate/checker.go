// Package gate evaluates slot pre- and post-conditions.
//
// A Checker never returns errors: every failure, including a panic inside an
// evaluator, becomes a GateCheckResult with Passed=false and diagnostic evidence.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/gantry/internal/logging"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// Default subprocess bounds.
const (
	DefaultTestTimeout    = 300 * time.Second
	DefaultCommandTimeout = 60 * time.Second
)

// DefaultTestCommand runs the Go test suite below the gate target.
var DefaultTestCommand = []string{"go", "test", "./..."}

// Checker evaluates gates against a project directory and a pipeline state.
type Checker struct {
	root           string
	fs             billy.Filesystem
	testCommand    []string
	testTimeout    time.Duration
	commandTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithFilesystem evaluates file-based gates against fs instead of the OS filesystem
// rooted at the project directory. Subprocess gates still run in the project directory.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(c *Checker) {
		c.fs = fs
	}
}

// WithTestCommand sets the argv run by tests_pass gates inside the target directory.
func WithTestCommand(argv ...string) Option {
	return func(c *Checker) {
		if len(argv) > 0 {
			c.testCommand = slices.Clone(argv)
		}
	}
}

// WithTestTimeout bounds tests_pass subprocesses.
func WithTestTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.testTimeout = d
		}
	}
}

// WithCommandTimeout bounds command: gate subprocesses.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.commandTimeout = d
		}
	}
}

// WithClock sets the time source used for CheckedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		c.now = now
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// New creates a Checker for the project rooted at projectRoot.
func New(projectRoot string, opts ...Option) *Checker {
	c := &Checker{
		root:           projectRoot,
		testCommand:    DefaultTestCommand,
		testTimeout:    DefaultTestTimeout,
		commandTimeout: DefaultCommandTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fs == nil {
		c.fs = osfs.New(projectRoot)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	return c
}

// CheckPreConditions evaluates the slot's pre-conditions in order.
func (c *Checker) CheckPreConditions(ctx context.Context, slot domain.Slot, state domain.PipelineState) []domain.GateCheckResult {
	return c.CheckAll(ctx, slot.PreConditions, state)
}

// CheckPostConditions evaluates the slot's post-conditions in order.
func (c *Checker) CheckPostConditions(ctx context.Context, slot domain.Slot, state domain.PipelineState) []domain.GateCheckResult {
	return c.CheckAll(ctx, slot.PostConditions, state)
}

// CheckAll returns one result per gate, in input order.
func (c *Checker) CheckAll(ctx context.Context, gates []domain.Gate, state domain.PipelineState) []domain.GateCheckResult {
	results := make([]domain.GateCheckResult, 0, len(gates))
	for _, g := range gates {
		results = append(results, c.Check(ctx, g, state))
	}
	return results
}

// AllPassed reports whether every result passed. It is true for no results.
func AllPassed(results []domain.GateCheckResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// FailedEvidence returns the evidence of every failed result, in order.
func FailedEvidence(results []domain.GateCheckResult) []string {
	var out []string
	for _, r := range results {
		if !r.Passed {
			out = append(out, r.Evidence)
		}
	}
	return out
}

// Check evaluates a single gate.
func (c *Checker) Check(ctx context.Context, g domain.Gate, state domain.PipelineState) (res domain.GateCheckResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("gate evaluator panicked", "type", g.Type, "target", g.Target, "panic", r)
			res = c.result(g.Check, false, fmt.Sprintf("Error in gate check: %v", r))
		}
	}()

	switch g.Type {
	case domain.GateFileExists:
		return c.fileExists(g.Target)
	case domain.GateSlotCompleted:
		return c.slotCompleted(g.Target, state)
	case domain.GateDeliveryValid:
		return c.report("Delivery valid", "DELIVERY.yaml", g.Target, domain.DeliveryRequiredKeys)
	case domain.GateReviewValid:
		return c.report("Review valid", "REVIEW.yaml", g.Target, domain.ReviewRequiredKeys)
	case domain.GateTestsPass:
		return c.testsPass(ctx, g.Target)
	case domain.GateCustom:
		return c.custom(ctx, g.Target)
	case domain.GateApproval, domain.GateArtifactValid:
		// No approval channel exists in-process; these always pass.
		return c.result(g.Check, true, fmt.Sprintf("Gate type '%s' auto-passed (requires external validation)", g.Type))
	default:
		return c.result(g.Check, false, fmt.Sprintf("Unknown gate type: %s", g.Type))
	}
}

func (c *Checker) result(condition string, passed bool, evidence string) domain.GateCheckResult {
	return domain.GateCheckResult{
		Condition: condition,
		Passed:    passed,
		Evidence:  evidence,
		CheckedAt: c.now().UTC(),
	}
}

func (c *Checker) path(target string) string {
	return filepath.Join(c.root, target)
}

func (c *Checker) exists(target string) bool {
	_, err := c.fs.Stat(target)
	return err == nil
}

func (c *Checker) fileExists(target string) domain.GateCheckResult {
	cond := "File exists: " + target
	if c.exists(target) {
		return c.result(cond, true, "File found at "+c.path(target))
	}
	return c.result(cond, false, "File not found at "+c.path(target))
}

func (c *Checker) slotCompleted(target string, state domain.PipelineState) domain.GateCheckResult {
	cond := "Slot completed: " + target
	status, ok := state.SlotStatusOf(target)
	switch {
	case !ok:
		return c.result(cond, false, fmt.Sprintf("Slot '%s' not found in pipeline state", target))
	case status == domain.SlotCompleted:
		return c.result(cond, true, fmt.Sprintf("Slot '%s' status is COMPLETED", target))
	default:
		return c.result(cond, false, fmt.Sprintf("Slot '%s' status is %s", target, status))
	}
}

// report validates a structured YAML report carrying the required top-level keys.
func (c *Checker) report(label, file, target string, required []string) domain.GateCheckResult {
	cond := label + ": " + target
	if !c.exists(target) {
		return c.result(cond, false, fmt.Sprintf("%s not found at %s", file, c.path(target)))
	}

	data, err := c.readYAML(target)
	if err != nil {
		return c.result(cond, false, fmt.Sprintf("Error reading %s: %v", file, err))
	}
	if data == nil {
		return c.result(cond, false, file+" is empty")
	}
	doc, ok := data.(map[string]any)
	if !ok {
		return c.result(cond, false, fmt.Sprintf("%s must be a mapping, got %T", file, data))
	}
	if len(doc) == 0 {
		return c.result(cond, false, file+" is empty")
	}

	var missing []string
	for _, key := range required {
		if _, ok := doc[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return c.result(cond, false, "Missing fields: "+strings.Join(missing, ", "))
	}
	return c.result(cond, true, file+" is valid YAML with required fields")
}

func (c *Checker) readYAML(target string) (any, error) {
	raw, err := util.ReadFile(c.fs, target)
	if err != nil {
		return nil, err
	}
	var data any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Checker) testsPass(ctx context.Context, target string) domain.GateCheckResult {
	cond := "Tests pass: " + target
	dir := c.path(target)
	if !c.exists(target) {
		return c.result(cond, false, "Test directory not found: "+dir)
	}

	res, err := run(ctx, dir, c.testTimeout, c.testCommand)
	switch {
	case errors.Is(err, errTimeout):
		return c.result(cond, false, "Tests "+err.Error())
	case err != nil:
		return c.result(cond, false, fmt.Sprintf("Error running tests: %v", err))
	case res.ExitCode == 0:
		return c.result(cond, true, orDefault(tail(res.Stdout), "Tests passed"))
	default:
		return c.result(cond, false, orDefault(tail(res.Stdout), "Tests failed"))
	}
}

func (c *Checker) custom(ctx context.Context, target string) domain.GateCheckResult {
	cond := "Custom: " + target
	if expr, ok := strings.CutPrefix(target, prefixYAMLField); ok {
		return c.yamlField(cond, expr)
	}
	if line, ok := strings.CutPrefix(target, prefixCommand); ok {
		return c.command(ctx, cond, line)
	}
	return c.result(cond, false, "Unknown custom expression format: "+target)
}

func (c *Checker) yamlField(cond, raw string) domain.GateCheckResult {
	expr, err := ParseFieldExpr(raw)
	if err != nil {
		return c.result(cond, false, err.Error())
	}
	if !c.exists(expr.File) {
		return c.result(cond, false, "File not found: "+c.path(expr.File))
	}

	data, err := c.readYAML(expr.File)
	if err != nil {
		return c.result(cond, false, fmt.Sprintf("Error evaluating custom expression: %v", err))
	}
	actual, ok := lookup(data, expr.Path)
	if !ok {
		return c.result(cond, false, fmt.Sprintf("Field '%s' not found in %s", expr.Path, expr.File))
	}

	passed := expr.Op.Compare(stringify(actual), expr.Value)
	verdict := "FAIL"
	if passed {
		verdict = "PASS"
	}
	return c.result(cond, passed, fmt.Sprintf("%s = %s %s %q -> %s", expr.Path, quote(actual), expr.Op, expr.Value, verdict))
}

func (c *Checker) command(ctx context.Context, cond, line string) domain.GateCheckResult {
	argv, err := shlex.Split(line)
	if err != nil {
		return c.result(cond, false, fmt.Sprintf("Error executing command: %v", err))
	}

	res, err := run(ctx, c.root, c.commandTimeout, argv)
	if errors.Is(err, errTimeout) {
		return c.result(cond, false, "Command "+err.Error())
	}
	if err != nil {
		return c.result(cond, false, fmt.Sprintf("Error executing command: %v", err))
	}

	evidence := tail(res.Stdout)
	if evidence == "" {
		evidence = tail(res.Stderr)
	}
	if evidence == "" {
		evidence = fmt.Sprintf("Exit code: %d", res.ExitCode)
	}
	c.logger.Debug("command gate finished", "argv", argv, "exit_code", res.ExitCode)
	return c.result(cond, res.ExitCode == 0, evidence)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// quote renders strings quoted and other scalars bare.
func quote(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return stringify(v)
}

package analyzer

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/jvm"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// Engine evaluates a rule set against finalized runs. It implements
// run.Evaluator and holds no state between evaluations.
type Engine struct {
	rules    []Rule
	env      Env
	disabled map[finding.Code]bool
	parallel bool
	logger   *zap.Logger
}

var _ run.Evaluator = (*Engine)(nil)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRules replaces the default rule catalog.
func WithRules(rules ...Rule) EngineOption {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithDeclaredOptions sets the JVM command line the process is expected to
// have run with.
func WithDeclaredOptions(opts jvm.Options) EngineOption {
	return func(e *Engine) {
		e.env.Declared = opts
	}
}

// WithThresholds sets the threshold rule limits.
func WithThresholds(t Thresholds) EngineOption {
	return func(e *Engine) {
		e.env.Thresholds = t
	}
}

// WithDisabled suppresses the given codes. A rule whose every code is
// disabled is not run at all.
func WithDisabled(codes ...finding.Code) EngineOption {
	return func(e *Engine) {
		for _, c := range codes {
			e.disabled[c] = true
		}
	}
}

// WithParallelRules evaluates rules concurrently. Each rule is a pure
// function of the same finalized run, so the result is the same.
func WithParallelRules(p bool) EngineOption {
	return func(e *Engine) {
		e.parallel = p
	}
}

// WithEngineLogger sets the logger that reports rules which panicked.
func WithEngineLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an engine with the default rules and thresholds.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		rules:    DefaultRules(),
		env:      Env{Thresholds: DefaultThresholds()},
		disabled: make(map[finding.Code]bool),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	active := make([]Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		if slices.ContainsFunc(rule.Codes(), func(c finding.Code) bool { return !e.disabled[c] }) {
			active = append(active, rule)
		}
	}
	e.rules = active
	return e
}

// Rules returns the rules the engine runs, in evaluation order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate returns the finding set of r in catalog order.
func (e *Engine) Evaluate(r *run.Run) []finding.Code {
	return collect(e.Results(r))
}

func collect(results []RuleResult) []finding.Code {
	var codes []finding.Code
	for _, res := range results {
		codes = append(codes, res.Findings...)
	}
	return finding.Set(codes...)
}

// Results evaluates every rule and returns one result per rule, in rule
// order.
func (e *Engine) Results(r *run.Run) []RuleResult {
	results := make([]RuleResult, len(e.rules))
	if !e.parallel {
		for i, rule := range e.rules {
			results[i] = e.check(rule, r)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, rule := range e.rules {
		i, rule := i, rule
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.check(rule, r)
		}()
	}
	wg.Wait()
	return results
}

// check runs one rule. A rule that panics contributes no findings and is
// logged at error level.
func (e *Engine) check(rule Rule, r *run.Run) (res RuleResult) {
	res = RuleResult{RuleName: rule.Name(), Family: rule.Family()}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Findings = nil
			e.logger.Error("rule panicked",
				zap.String("rule", res.RuleName),
				zap.Any("panic", p))
		}
		res.Elapsed = time.Since(start)
	}()

	var kept []finding.Code
	for _, c := range rule.Check(r, e.env) {
		if !e.disabled[c] {
			kept = append(kept, c)
		}
	}
	res.Findings = finding.Set(kept...)
	return res
}

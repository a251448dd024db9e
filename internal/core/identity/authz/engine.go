package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/leadflow/leadflow/internal/core/identity/config"
	identtypes "github.com/leadflow/leadflow/internal/core/identity/types"
	"gopkg.in/yaml.v3"
)

type (
	RuleSet  = identtypes.RuleSet
	Request  = identtypes.AuthzRequest
	Auth     = identtypes.Authenticated
	Resource = identtypes.Resource
)

// Lead actions checked by the REST layer.
const (
	ActionList   = "list"
	ActionGet    = "get"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionExport = "export"
)

var ErrNoRules = errors.New("rule set has no allow entries")

// DefaultRules lets any authenticated user perform every lead action.
func DefaultRules() *RuleSet {
	return &RuleSet{
		Version: "1",
		Allow: map[string]string{
			"read, write, export": "request.auth.uid != ''",
		},
	}
}

type Engine interface {
	Evaluate(ctx context.Context, action string, req Request) (bool, error)
	GetRules() *RuleSet
	UpdateRules(content []byte) error
}

type ruleEngine struct {
	rules      *RuleSet
	celEnv     *cel.Env
	programMap sync.Map // map[string]cel.Program
	mu         sync.RWMutex
}

func NewEngine(cfg config.AuthZConfig) (Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("request", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("resource", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}

	e := &ruleEngine{celEnv: env}

	if cfg.RulesFile == "" {
		if err := e.setRules(DefaultRules()); err != nil {
			return nil, err
		}
		return e, nil
	}

	data, err := os.ReadFile(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules from %s: %w", cfg.RulesFile, err)
	}
	if err := e.UpdateRules(data); err != nil {
		return nil, fmt.Errorf("failed to load rules from %s: %w", cfg.RulesFile, err)
	}
	return e, nil
}

func (e *ruleEngine) Evaluate(ctx context.Context, action string, req Request) (bool, error) {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	if rules == nil {
		return false, nil
	}

	// Sorted for a deterministic evaluation order.
	keys := make([]string, 0, len(rules.Allow))
	for k := range rules.Allow {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, actionsStr := range keys {
		if !ruleCovers(actionsStr, action) {
			continue
		}
		ok, err := e.evalCondition(rules.Allow[actionsStr], req)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func ruleCovers(actionsStr, action string) bool {
	for _, a := range strings.Split(actionsStr, ",") {
		if matchesAction(strings.TrimSpace(a), action) {
			return true
		}
	}
	return false
}

func matchesAction(ruleAction, reqAction string) bool {
	if ruleAction == reqAction {
		return true
	}
	if ruleAction == "read" && (reqAction == ActionGet || reqAction == ActionList) {
		return true
	}
	if ruleAction == "write" && (reqAction == ActionCreate || reqAction == ActionUpdate || reqAction == ActionDelete) {
		return true
	}
	return false
}

func (e *ruleEngine) evalCondition(condition string, req Request) (bool, error) {
	prg, err := e.getProgram(condition)
	if err != nil {
		return false, err
	}

	input := map[string]any{
		"request":  structToMap(req),
		"resource": structToMap(req.Resource),
	}

	out, _, err := prg.Eval(input)
	if err != nil {
		return false, err
	}
	return out.Value() == true, nil
}

func (e *ruleEngine) getProgram(expression string) (cel.Program, error) {
	if p, ok := e.programMap.Load(expression); ok {
		return p.(cel.Program), nil
	}

	ast, issues := e.celEnv.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := e.celEnv.Program(ast)
	if err != nil {
		return nil, err
	}
	e.programMap.Store(expression, prg)
	return prg, nil
}

// structToMap converts v through its JSON form; CEL sees the json field names.
func structToMap(v any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr && val.IsNil() {
		return map[string]any{}
	}
	b, _ := json.Marshal(v)
	m := map[string]any{}
	_ = json.Unmarshal(b, &m)
	return m
}

func (e *ruleEngine) GetRules() *RuleSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules
}

func (e *ruleEngine) UpdateRules(content []byte) error {
	var rules RuleSet
	if err := yaml.Unmarshal(content, &rules); err != nil {
		return err
	}
	return e.setRules(&rules)
}

func (e *ruleEngine) setRules(rules *RuleSet) error {
	if len(rules.Allow) == 0 {
		return ErrNoRules
	}
	for _, condition := range rules.Allow {
		if _, issues := e.celEnv.Compile(condition); issues != nil && issues.Err() != nil {
			return fmt.Errorf("invalid CEL expression %q: %w", condition, issues.Err())
		}
	}

	e.mu.Lock()
	e.rules = rules
	e.programMap = sync.Map{}
	e.mu.Unlock()
	return nil
}

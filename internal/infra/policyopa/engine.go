package policyopa

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docsign/internal/domain"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.docsign.access.result"

//go:embed policy/*.rego
var embeddedPolicy embed.FS

type Engine struct {
	query  rego.PreparedEvalQuery
	source string
	hash   string
}

// NewEngine compiles the built-in access policy, or the .rego files under
// bundlePath when one is given.
func NewEngine(ctx context.Context, bundlePath string) (*Engine, error) {
	if strings.TrimSpace(bundlePath) != "" {
		return NewEngineFromBundlePath(ctx, bundlePath)
	}
	sub, err := fs.Sub(embeddedPolicy, "policy")
	if err != nil {
		return nil, err
	}
	modules, err := readModules(sub)
	if err != nil {
		return nil, err
	}
	return newEngine(ctx, "embedded", modules)
}

func NewEngineFromBundlePath(ctx context.Context, bundlePath string) (*Engine, error) {
	modules, err := readModules(os.DirFS(bundlePath))
	if err != nil {
		return nil, err
	}
	return newEngine(ctx, bundlePath, modules)
}

func newEngine(ctx context.Context, source string, modules map[string]string) (*Engine, error) {
	if len(modules) == 0 {
		return nil, fmt.Errorf("no policy modules in %s", source)
	}
	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)
	compiler := ast.NewCompiler().WithCapabilities(capabilities)

	opts := []func(*rego.Rego){
		rego.Query(defaultQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
	}
	names := sortedKeys(modules)
	for _, name := range names {
		opts = append(opts, rego.Module(name, modules[name]))
	}
	prepared, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}
	hash, err := policyHash(names, modules)
	if err != nil {
		return nil, err
	}
	return &Engine{query: prepared, source: source, hash: hash}, nil
}

func (e *Engine) Source() string { return e.source }

// Hash identifies the compiled policy sources.
func (e *Engine) Hash() string { return e.hash }

func (e *Engine) Evaluate(ctx context.Context, input domain.AccessInput) (domain.PolicyResult, error) {
	if e == nil {
		return domain.PolicyResult{}, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.PolicyResult{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.PolicyResult{}, errors.New("empty policy result")
	}
	result, err := decodePolicyResult(results[0].Expressions[0].Value)
	if err != nil {
		return domain.PolicyResult{}, err
	}
	normalizePolicyResult(&result)
	return result, nil
}

func readModules(fsys fs.FS) (map[string]string, error) {
	modules := make(map[string]string)
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || filepath.Ext(path) != ".rego" || strings.HasSuffix(path, "_test.rego") {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		modules[path] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read policy modules: %w", err)
	}
	return modules, nil
}

type policyFile struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

func policyHash(names []string, modules map[string]string) (string, error) {
	files := make([]policyFile, 0, len(names))
	for _, name := range names {
		sum := sha256.Sum256([]byte(modules[name]))
		files = append(files, policyFile{Path: name, SHA256: hex.EncodeToString(sum[:])})
	}
	payload, err := json.Marshal(files)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func decodePolicyResult(value any) (domain.PolicyResult, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return domain.PolicyResult{}, err
	}
	var result domain.PolicyResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.PolicyResult{}, err
	}
	return result, nil
}

func normalizePolicyResult(result *domain.PolicyResult) {
	if result == nil {
		return
	}
	if result.Allow {
		result.Deny = nil
		return
	}
	sort.Slice(result.Deny, func(i, j int) bool {
		if result.Deny[i].Code == result.Deny[j].Code {
			return result.Deny[i].Message < result.Deny[j].Message
		}
		return result.Deny[i].Code < result.Deny[j].Code
	})
}

func assertNoForbiddenBuiltins(compiler *ast.Compiler) error {
	if compiler == nil {
		return errors.New("policy compiler is nil")
	}
	forbidden := make(map[string]struct{})
	for _, module := range compiler.Modules {
		ast.WalkTerms(module, func(term *ast.Term) bool {
			call, ok := term.Value.(ast.Call)
			if !ok || len(call) == 0 || call[0] == nil {
				return false
			}
			name := call[0].Value.String()
			if _, ok := ast.BuiltinMap[name]; !ok {
				return false
			}
			if _, ok := allowedBuiltins[name]; ok {
				return false
			}
			forbidden[name] = struct{}{}
			return false
		})
	}
	if len(forbidden) == 0 {
		return nil
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("forbidden builtins: %s", strings.Join(names, ", "))
}

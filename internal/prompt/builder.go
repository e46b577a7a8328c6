// Package prompt renders the instruction body of a task document.
//
// Rendering is a pure function of (category, parameters) plus the remote API
// description and the clock: each known category maps to an embedded
// text/template, every other category goes to the default template.
package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"policytask/internal/config"

	"github.com/Masterminds/sprig/v3"
)

//go:embed templates/*.md.tmpl
var templatesFS embed.FS

// MinConfidence is the score a candidate needs before the API imports it
const MinConfidence = 0.7

// DefaultElectionYear is used when candidate_search carries no election_year
const DefaultElectionYear = 2026

// API describes the remote action endpoint written into the curl examples.
// Empty credentials are emitted as shell references to the named variables,
// so generated files never carry a secret unless one was configured.
type API struct {
	Endpoint     string
	APIKey       string
	AuthToken    string
	APIKeyEnv    string
	AuthTokenEnv string
}

// NewAPI resolves the API description, reading credentials from the environment
func NewAPI(cfg config.API) API {
	return API{
		Endpoint:     cfg.Endpoint,
		APIKey:       cfg.APIKey(),
		AuthToken:    cfg.AuthToken(),
		APIKeyEnv:    cfg.APIKeyEnv,
		AuthTokenEnv: cfg.AuthTokenEnv,
	}
}

type apiView struct {
	Endpoint string
	Bearer   string
	KeyJSON  string
}

func (a API) view() apiView {
	keyEnv := a.APIKeyEnv
	if keyEnv == "" {
		keyEnv = config.DefaultAPIKeyEnv
	}
	tokenEnv := a.AuthTokenEnv
	if tokenEnv == "" {
		tokenEnv = config.DefaultAuthTokenEnv
	}

	v := apiView{
		Endpoint: a.Endpoint,
		Bearer:   a.AuthToken,
		KeyJSON:  `"` + jsonField(a.APIKey) + `"`,
	}
	if v.Endpoint == "" {
		v.Endpoint = config.DefaultAPIEndpoint
	}
	if a.AuthToken == "" {
		v.Bearer = "${" + tokenEnv + "}"
	}
	if a.APIKey == "" {
		// closes the single-quoted payload so the shell expands the variable
		v.KeyJSON = `"'"${` + keyEnv + `}"'"`
	}
	return v
}

// view is the data every template is executed with
type view struct {
	Category string
	PromptID string
	API      apiView
	Today    string

	Year            string
	Region          string
	Position        string
	Name            string
	SearchAfter     string
	SearchDateLimit int
	MinConfidence   float64

	PoliticianName string
	PolicyTitle    string
	Keywords       []string
}

type renderFunc func(v *view, params Params) string

// renderers maps each known category to the function filling its view.
// The returned string names the template to execute.
var renderers = map[Category]renderFunc{
	CategoryCandidateSearch: func(v *view, params Params) string {
		v.Year = params.String("election_year", fmt.Sprint(DefaultElectionYear))
		v.Region = params.String("region", "")
		v.Position = params.String("position", "")
		v.Name = params.String("name", "")
		v.SearchAfter = params.String("search_after_date", "")
		v.SearchDateLimit = params.Int("search_date_limit", 30)
		v.MinConfidence = MinConfidence
		return "candidate_search.md.tmpl"
	},
	CategoryPolicySearch: func(v *view, params Params) string {
		v.PoliticianName = params.String("politician_name", "")
		v.Keywords = params.Strings("keywords")
		return "policy_search.md.tmpl"
	},
	CategoryPolicyVerify: func(v *view, params Params) string {
		v.PoliticianName = params.String("politician_name", "")
		v.PolicyTitle = params.String("policy_title", "")
		return "policy_verify.md.tmpl"
	},
	CategoryProgressTracking: func(v *view, params Params) string {
		v.PoliticianName = params.String("politician_name", "")
		v.PolicyTitle = params.String("policy_title", "")
		return "progress_tracking.md.tmpl"
	},
}

func renderUnknown(v *view, params Params) string {
	v.Region = params.String("region", "")
	return "unknown.md.tmpl"
}

// Builder renders instruction bodies
type Builder struct {
	api  API
	now  func() time.Time
	tmpl *template.Template
}

// Option configures a Builder
type Option func(*Builder)

// WithClock overrides the clock used for dates inside the instructions
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder parses the embedded templates
func NewBuilder(api API, opts ...Option) (*Builder, error) {
	tmpl, err := template.New("instructions").
		Funcs(GetTemplateFunctions()).
		Option("missingkey=zero").
		ParseFS(templatesFS, "templates/*.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse instruction templates: %w", err)
	}

	b := &Builder{
		api:  api,
		now:  time.Now,
		tmpl: tmpl,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Render returns the instruction body for a task. Unknown categories use the
// prompt_template parameter verbatim when present, the default template otherwise.
func (b *Builder) Render(promptID string, category Category, params map[string]any) (string, error) {
	p := Params(params)

	fill, ok := renderers[category]
	if !ok {
		if custom := p.String("prompt_template", ""); custom != "" {
			return custom, nil
		}
		fill = renderUnknown
	}

	v := &view{
		Category: string(category),
		PromptID: promptID,
		API:      b.api.view(),
		Today:    b.now().UTC().Format("2006-01-02"),
	}
	name := fill(v, p)

	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, name, v); err != nil {
		return "", fmt.Errorf("failed to render %s instructions: %w", category, err)
	}
	return buf.String(), nil
}

// GetTemplateFunctions returns sprig's text functions plus the payload escaper
func GetTemplateFunctions() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["field"] = jsonField
	return funcs
}

// jsonField escapes s for a JSON string inside a single-quoted shell argument
func jsonField(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return s
	}
	quoted := strings.TrimSuffix(buf.String(), "\n")
	escaped := quoted[1 : len(quoted)-1]
	return strings.ReplaceAll(escaped, "'", `'\''`)
}

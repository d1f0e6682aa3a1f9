package mcpserver

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/xmazu/dotenvy/dotenv"
	"github.com/xmazu/dotenvy/internal/config"
	"github.com/xmazu/dotenvy/internal/discover"
	"github.com/xmazu/dotenvy/internal/history"
	"github.com/xmazu/dotenvy/internal/runenv"
	"github.com/xmazu/dotenvy/internal/tui"
)

type FilesArgs struct {
	Workdir string   `json:"workdir" jsonschema:"directory to resolve env files from (default: current)"`
	Files   []string `json:"files" jsonschema:"env files or glob patterns (default: project files, else nearest .env)"`
}

type GetVarArgs struct {
	Workdir string   `json:"workdir" jsonschema:"directory to resolve env files from (default: current)"`
	Files   []string `json:"files" jsonschema:"env files or glob patterns (default: project files, else nearest .env)"`
	Key     string   `json:"key" jsonschema:"variable name (e.g. DATABASE_URL)"`
}

type HistoryArgs struct {
	Workdir string `json:"workdir" jsonschema:"directory inside the project (default: current)"`
	Count   int    `json:"count" jsonschema:"number of entries to return (default: 10)"`
}

type VarInfo struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Masked bool   `json:"masked"`
	Length int    `json:"length"`
}

type ProblemInfo struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

type session struct {
	target     *discover.Target
	classifier *runenv.Classifier
	runID      string
}

func open(args FilesArgs) (*session, error) {
	target, err := discover.Resolve(args.Workdir, args.Files)
	if err != nil {
		return nil, err
	}
	return &session{
		target:     target,
		classifier: runenv.NewClassifier(),
		runID:      history.NewRunID(),
	}, nil
}

// load reads the files as written, without the server's own environment.
func (s *session) load() (*runenv.Result, error) {
	ids, _, err := config.ResolveIdentities("", s.target.Project)
	if err != nil {
		return nil, err
	}
	return runenv.Load(s.target.Files, runenv.Options{
		Sequence:   dotenv.InputOnly,
		Strict:     s.target.Project.Strict,
		Identities: ids,
		Base:       map[string]string{},
	})
}

func (s *session) info(key, value string) VarInfo {
	v := VarInfo{Key: key, Value: value, Length: len(value)}
	if s.classifier.Sensitive(key, value) {
		v.Value = runenv.MaskSecretValue(value)
		v.Masked = true
	}
	return v
}

func (s *session) record(tool string, opts ...history.Option) {
	opts = append(opts, history.WithTool(tool), history.WithRunID(s.runID), history.WithFiles(s.target.Files))
	if _, err := history.Log(s.target.Root, history.OpMCPCall, opts...); err != nil {
		log.Warn().Err(err).Str("component", "mcp").Str("tool", tool).Msg("could not write history entry")
	}
}

func parseEnv(args FilesArgs) (map[string]any, error) {
	s, err := open(args)
	if err != nil {
		return nil, err
	}
	res, err := s.load()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(res.Loaded))
	for k := range res.Loaded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vars := make([]VarInfo, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, s.info(k, res.Loaded[k]))
	}

	s.record("parse_env", history.WithKeys(keys))
	return map[string]any{"files": res.Files, "vars": vars}, nil
}

func checkEnv(args FilesArgs) (map[string]any, error) {
	s, err := open(args)
	if err != nil {
		return nil, err
	}
	ids, _, err := config.ResolveIdentities("", s.target.Project)
	if err != nil {
		return nil, err
	}
	res, err := runenv.Check(s.target.Files, ids, s.target.Project.Strict)
	if err != nil {
		return nil, err
	}

	problems := make([]ProblemInfo, 0, len(res.Problems))
	for _, p := range res.Problems {
		d, _ := tui.NewDiagnostic(p.File, p.Err)
		problems = append(problems, ProblemInfo{
			File:    p.File,
			Line:    d.Line,
			Column:  d.Column,
			Text:    d.Text,
			Message: p.Err.Error(),
		})
	}

	s.record("check_env", history.WithKeys(res.Keys), history.WithErrors(len(problems)))
	return map[string]any{
		"ok":       res.OK(),
		"files":    res.Files,
		"keys":     len(res.Keys),
		"problems": problems,
	}, nil
}

func getVar(args GetVarArgs) (map[string]any, error) {
	if args.Key == "" {
		return nil, errors.New("key is required")
	}
	s, err := open(FilesArgs{Workdir: args.Workdir, Files: args.Files})
	if err != nil {
		return nil, err
	}
	res, err := s.load()
	if err != nil {
		return nil, err
	}
	value, err := dotenv.EnvMap(res.Loaded).Var(args.Key)
	if err != nil {
		return nil, err
	}

	s.record("get_var", history.WithKeys([]string{args.Key}))
	return map[string]any{"var": s.info(args.Key, value), "files": res.Files}, nil
}

func historyRecent(args HistoryArgs) (map[string]any, error) {
	root, err := discover.FindRoot(workdirOrDot(args.Workdir))
	if err != nil {
		return nil, err
	}
	count := args.Count
	if count <= 0 {
		count = 10
	}
	entries, err := history.Show(root, count)
	if errors.Is(err, history.ErrNoHistory) {
		return map[string]any{"entries": []history.Entry{}, "message": "No history log found"}, nil
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"entries": entries}, nil
}

func historyVerify(args HistoryArgs) (map[string]any, error) {
	root, err := discover.FindRoot(workdirOrDot(args.Workdir))
	if err != nil {
		return nil, err
	}
	result, err := history.Verify(root)
	if errors.Is(err, history.ErrNoHistory) {
		return map[string]any{"verified": false, "message": "No history log found"}, nil
	}
	if err != nil {
		return nil, err
	}

	msg := "History chain verified"
	if !result.OK() {
		msg = fmt.Sprintf("Chain breaks at lines %v; the log may have been edited", result.Breaks)
	}
	return map[string]any{
		"verified":      result.OK(),
		"total_entries": result.TotalEntries,
		"breaks":        result.Breaks,
		"message":       msg,
	}, nil
}

func workdirOrDot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

package agents

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/github"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
)

// PullRequests is the source-control collaborator used by the review and chat agents.
type PullRequests interface {
	PullRequest(ctx context.Context, repo string, number int) (github.PullRequest, error)
	ListFiles(ctx context.Context, repo string, number int) ([]github.File, error)
	FileContent(ctx context.Context, repo, path, ref string) (string, error)
	CreateIssueComment(ctx context.Context, repo string, number int, body string) error
}

var _ PullRequests = (*github.Client)(nil)

// generalFeedback names feedback that is not tied to one file.
const generalFeedback = "general"

var languageByExt = map[string]string{
	".py":     "python",
	".js":     "javascript",
	".jsx":    "javascript",
	".ts":     "typescript",
	".tsx":    "typescript",
	".vue":    "vue",
	".svelte": "svelte",
	".css":    "css",
	".scss":   "scss",
	".html":   "html",
}

// FileFeedback is the review outcome for one file. Error is set instead of the
// review fields when the file could not be reviewed.
type FileFeedback struct {
	File           string
	Issues         []llm.Issue
	Suggestions    []llm.Suggestion
	OverallQuality llm.Quality
	Error          string
}

// Comment renders the feedback as a pull-request comment.
func (f FileFeedback) Comment() string {
	if f.Error != "" {
		return "⚠️ **Code Review Error**: " + f.Error
	}
	issues := "- No issues found"
	if len(f.Issues) > 0 {
		lines := make([]string, 0, len(f.Issues))
		for _, i := range f.Issues {
			lines = append(lines, "- "+i.Description)
		}
		issues = strings.Join(lines, "\n")
	}
	suggestions := "- No suggestions provided"
	if len(f.Suggestions) > 0 {
		lines := make([]string, 0, len(f.Suggestions))
		for _, s := range f.Suggestions {
			lines = append(lines, "- "+s.Description)
		}
		suggestions = strings.Join(lines, "\n")
	}
	quality := string(f.OverallQuality)
	if quality == "" {
		quality = "unknown"
	}
	return fmt.Sprintf("### 📝 Code Review for `%s`\n\n**Overall Quality**: %s\n\n**Issues Found**:\n%s\n\n**Suggestions**:\n%s",
		f.File, quality, issues, suggestions)
}

// PullRequestRef identifies the pull request an agent works on.
type PullRequestRef struct {
	Repo   string
	Number int
}

func (r PullRequestRef) String() string {
	return fmt.Sprintf("%s#%d", r.Repo, r.Number)
}

// CodeReviewAgent reviews the changed files of a pull request and comments on it.
type CodeReviewAgent struct {
	prs        PullRequests
	llm        llm.Completer
	model      string
	ref        PullRequestRef
	extensions []string
	logger     *zap.Logger
}

// NewCodeReviewAgent builds the reviewer. Only files whose extension is listed
// in extensions are reviewed. logger may be nil.
func NewCodeReviewAgent(prs PullRequests, completer llm.Completer, model string, ref PullRequestRef, extensions []string, logger *zap.Logger) *CodeReviewAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return &CodeReviewAgent{prs: prs, llm: completer, model: model, ref: ref, extensions: exts, logger: logger}
}

// Review produces feedback for every reviewable file. Failing to reach the
// pull request yields a single general error entry.
func (a *CodeReviewAgent) Review(ctx context.Context) []FileFeedback {
	pr, err := a.prs.PullRequest(ctx, a.ref.Repo, a.ref.Number)
	if err != nil {
		return a.generalFailure(collaboratorError("get pull request", err))
	}
	files, err := a.prs.ListFiles(ctx, a.ref.Repo, a.ref.Number)
	if err != nil {
		return a.generalFailure(collaboratorError("list pull request files", err))
	}
	a.logger.Info("reviewing pull request", zap.String("pr", a.ref.String()), zap.Int("files", len(files)))

	var feedback []FileFeedback
	for _, f := range files {
		if !a.reviewable(f) {
			a.logger.Debug("skipping file", zap.String("file", f.Filename), zap.String("status", f.Status))
			continue
		}
		feedback = append(feedback, a.reviewFile(ctx, pr.HeadSHA, f))
	}
	return feedback
}

func (a *CodeReviewAgent) reviewable(f github.File) bool {
	if f.Status == "removed" {
		return false
	}
	ext := strings.ToLower(path.Ext(f.Filename))
	for _, e := range a.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (a *CodeReviewAgent) reviewFile(ctx context.Context, headSHA string, f github.File) FileFeedback {
	code, err := a.prs.FileContent(ctx, a.ref.Repo, f.Filename, headSHA)
	if err != nil || code == "" {
		a.logger.Warn("could not fetch file content, using patch", zap.String("file", f.Filename), zap.Error(err))
		code = f.Patch
	}
	if strings.TrimSpace(code) == "" {
		return FileFeedback{File: f.Filename, Error: fmt.Sprintf("No content available to review for %s", f.Filename)}
	}

	res := a.llm.Review(ctx, a.model, llm.ReviewRequest{
		Code:     code,
		FileName: f.Filename,
		Language: languageByExt[strings.ToLower(path.Ext(f.Filename))],
	})
	if res.Failed() {
		msg := "review failed"
		if len(res.Issues) > 0 {
			msg = res.Issues[0].Description
		}
		a.logger.Warn("review failed", zap.String("file", f.Filename), zap.String("error", msg))
		return FileFeedback{File: f.Filename, Error: msg}
	}
	return FileFeedback{
		File:           f.Filename,
		Issues:         res.Issues,
		Suggestions:    res.Suggestions,
		OverallQuality: res.OverallQuality,
	}
}

func (a *CodeReviewAgent) generalFailure(err error) []FileFeedback {
	a.logger.Error("code review failed", zap.String("pr", a.ref.String()), zap.Error(err))
	return []FileFeedback{{File: generalFeedback, Error: "Failed to perform code review: " + err.Error()}}
}

// Post comments every feedback entry on the pull request. It stops at the
// first comment that cannot be posted.
func (a *CodeReviewAgent) Post(ctx context.Context, feedback []FileFeedback) error {
	for _, f := range feedback {
		if err := a.prs.CreateIssueComment(ctx, a.ref.Repo, a.ref.Number, f.Comment()); err != nil {
			return collaboratorError("post review comment", err)
		}
	}
	return nil
}

// Run reviews the pull request and posts the feedback.
func (a *CodeReviewAgent) Run(ctx context.Context) ([]FileFeedback, error) {
	feedback := a.Review(ctx)
	return feedback, a.Post(ctx, feedback)
}

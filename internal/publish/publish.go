package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/bartekus/cadence/internal/logging"
)

// tokenUser is the basic-auth user GitHub accepts alongside an installation
// or workflow token.
const tokenUser = "x-access-token"

// Options configures a Publisher.
type Options struct {
	// Report is the path of the report, relative to the repository root.
	Report      string
	Message     string
	AuthorName  string
	AuthorEmail string
	Remote      string
	// Token enables HTTP basic auth for the push when non-empty.
	Token  string
	DryRun bool
}

// PushFunc performs the push. It is replaceable for tests.
type PushFunc func(ctx context.Context, repo *git.Repository, opts *git.PushOptions) error

// Publisher commits the report when it changed and pushes the branch.
type Publisher struct {
	root string
	opts Options
	push PushFunc
	now  func() time.Time
	log  *log.Logger
}

func New(repoRoot string, opts Options, logger *log.Logger) *Publisher {
	if opts.Remote == "" {
		opts.Remote = git.DefaultRemoteName
	}
	return &Publisher{
		root: repoRoot,
		opts: opts,
		push: func(ctx context.Context, repo *git.Repository, o *git.PushOptions) error {
			return repo.PushContext(ctx, o)
		},
		now: time.Now,
		log: logging.OrDiscard(logger),
	}
}

// WithPush replaces the push implementation.
func (p *Publisher) WithPush(fn PushFunc) *Publisher {
	p.push = fn
	return p
}

// Publish runs stage, commit and push. Nothing to commit and a rejected push
// come back as benign outcomes; every other git error is OutcomeFailed.
func (p *Publisher) Publish(ctx context.Context) Result {
	repo, err := git.PlainOpen(p.root)
	if err != nil {
		return failed(fmt.Errorf("opening repository: %w", err))
	}
	wt, err := repo.Worktree()
	if err != nil {
		return failed(fmt.Errorf("opening worktree: %w", err))
	}

	rel := filepath.ToSlash(filepath.Clean(p.opts.Report))
	logger := p.log.With("report", rel)

	if _, err := os.Stat(filepath.Join(p.root, filepath.FromSlash(rel))); err != nil {
		return failed(fmt.Errorf("%w: %s", ErrReportMissing, rel))
	}

	if p.opts.DryRun {
		changed, err := reportChanged(wt, rel, false)
		if err != nil {
			return failed(err)
		}
		res := Result{Outcome: OutcomeNothingToCommit, Push: PushNotAttempted, DryRun: true}
		if changed {
			res.Outcome = OutcomeCommitted
		}
		logger.Info("dry run, leaving the repository untouched", "changed", changed)
		return res
	}

	if _, err := wt.Add(rel); err != nil {
		return failed(fmt.Errorf("staging %s: %w", rel, err))
	}
	changed, err := reportChanged(wt, rel, true)
	if err != nil {
		return failed(err)
	}

	res := Result{Outcome: OutcomeNothingToCommit}
	if changed {
		hash, err := wt.Commit(p.opts.Message, &git.CommitOptions{
			Author: &object.Signature{
				Name:  p.opts.AuthorName,
				Email: p.opts.AuthorEmail,
				When:  p.now(),
			},
		})
		switch {
		case errors.Is(err, git.ErrEmptyCommit):
			// index already matches HEAD
		case err != nil:
			return failed(fmt.Errorf("committing %s: %w", rel, err))
		default:
			res.Outcome = OutcomeCommitted
			res.Committed = true
			res.Hash = hash.String()
		}
	}
	if res.Committed {
		logger.Info("committed report", "commit", res.Hash)
	} else {
		logger.Info("no changes to commit")
	}

	return p.pushBranch(ctx, repo, res)
}

func (p *Publisher) pushBranch(ctx context.Context, repo *git.Repository, res Result) Result {
	head, err := repo.Head()
	if err != nil {
		return failed(fmt.Errorf("resolving HEAD: %w", err))
	}
	if !head.Name().IsBranch() {
		return failed(ErrDetachedHead)
	}

	ref := head.Name().String()
	po := &git.PushOptions{
		RemoteName: p.opts.Remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
	}
	if p.opts.Token != "" {
		po.Auth = &http.BasicAuth{Username: tokenUser, Password: p.opts.Token}
	}

	logger := p.log.With("remote", p.opts.Remote, "branch", head.Name().Short())
	err = p.push(ctx, repo, po)
	switch {
	case err == nil:
		res.Push = PushOK
		logger.Info("pushed")
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		res.Push = PushUpToDate
		logger.Info("remote already up to date")
	case IsRejected(err):
		res.Push = PushRejected
		res.Outcome = OutcomePushRejected
		res.Reason = err.Error()
		logger.Warn("push rejected, leaving it for the next run", "reason", err)
	default:
		res.Outcome = OutcomeFailed
		res.Push = PushNotAttempted
		res.Err = fmt.Errorf("pushing %s: %w", ref, err)
	}
	return res
}

// reportChanged reports whether rel differs from HEAD. With staged set it
// also refuses to continue when anything besides rel is staged, so a commit
// can only ever contain the report.
func reportChanged(wt *git.Worktree, rel string, staged bool) (bool, error) {
	st, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("reading status: %w", err)
	}

	if staged {
		for path, fs := range st {
			if path == rel {
				continue
			}
			if fs.Staging != git.Unmodified && fs.Staging != git.Untracked {
				return false, fmt.Errorf("%w: %s", ErrUnrelatedStaged, path)
			}
		}
	}

	fs, ok := st[rel]
	if !ok {
		return false, nil
	}
	if staged {
		return fs.Staging != git.Unmodified && fs.Staging != git.Untracked, nil
	}
	return fs.Staging != git.Unmodified || fs.Worktree != git.Unmodified, nil
}

// IsRejected reports whether a push error means the remote refused the
// update, as opposed to the push not reaching it.
//
// A missing object counts as a rejection: the fast-forward check walks local
// history for the remote tip, and in a shallow clone that walk runs off the
// shallow boundary when the remote has moved on.
func IsRejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, git.ErrNonFastForwardUpdate) || errors.Is(err, plumbing.ErrObjectNotFound) {
		return true
	}
	if errors.Is(err, transport.ErrAuthenticationRequired) ||
		errors.Is(err, transport.ErrAuthorizationFailed) ||
		errors.Is(err, transport.ErrRepositoryNotFound) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"non-fast-forward", "rejected", "command error on", "protected branch"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Package stream provides the ends of a packstream pipeline: a glob source
// that reads files into items, a destination that writes items back to disk,
// and Pipe, which runs a source, any number of stages and a destination
// concurrently.
package stream

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/packstream/internal/errors"
	"github.com/Iron-Ham/packstream/internal/item"
)

// Producer emits items into out. It must not close out.
type Producer func(ctx context.Context, out chan<- *item.Item) error

// Stage transforms the items of in into out. It must not close out.
type Stage func(ctx context.Context, in <-chan *item.Item, out chan<- *item.Item) error

// Consumer drains in until it is closed.
type Consumer func(ctx context.Context, in <-chan *item.Item) error

// pattern is one compiled source glob.
type pattern struct {
	raw    string
	base   string // slash path of the leading literal segments
	glob   glob.Glob
	negate bool
}

func compile(raw string) (pattern, error) {
	p := pattern{raw: raw}
	if strings.HasPrefix(raw, "!") {
		p.negate = true
		raw = raw[1:]
	}
	raw = path.Clean(filepath.ToSlash(strings.TrimPrefix(raw, "./")))

	g, err := glob.Compile(raw, '/')
	if err != nil {
		return pattern{}, errors.Wrapf(err, "invalid source pattern %q", p.raw)
	}
	p.glob = g
	p.base = globBase(raw)
	return p, nil
}

// globBase returns the leading segments of a slash pattern that contain no
// glob syntax. A pattern without any glob syntax is a single file whose base
// is its directory.
func globBase(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if strings.ContainsAny(s, "*?[{") {
			return strings.Join(segs[:i], "/")
		}
	}
	return path.Dir(p)
}

// Source reads every file under cwd matching patterns into buffered items, in
// lexical path order. Patterns are slash globs relative to cwd; a leading
// "!" excludes matches. Each item's Base is the literal prefix of the first
// pattern that matched it, so Relative() keeps the globbed directory layout.
func Source(fs afero.Fs, cwd string, patterns ...string) Producer {
	return func(ctx context.Context, out chan<- *item.Item) error {
		if len(patterns) == 0 {
			return errors.New("no source patterns given")
		}

		var include, exclude []pattern
		for _, raw := range patterns {
			p, err := compile(raw)
			if err != nil {
				return err
			}
			if p.negate {
				exclude = append(exclude, p)
			} else {
				include = append(include, p)
			}
		}

		return afero.Walk(fs, cwd, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if info.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(cwd, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			matched, ok := match(include, rel)
			if !ok {
				return nil
			}
			if _, excluded := match(exclude, rel); excluded {
				return nil
			}

			contents, err := afero.ReadFile(fs, p)
			if err != nil {
				return errors.Wrapf(err, "read %s", rel)
			}
			it := item.New(filepath.Join(cwd, filepath.FromSlash(matched.base)), p, contents)
			it.Cwd = cwd

			select {
			case out <- it:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
}

func match(patterns []pattern, rel string) (pattern, bool) {
	for _, p := range patterns {
		if p.glob.Match(rel) {
			return p, true
		}
	}
	return pattern{}, false
}

// Dest writes every buffered item to dir, at the item's path relative to its
// base. Null items are skipped.
func Dest(fs afero.Fs, dir string) Consumer {
	return func(_ context.Context, in <-chan *item.Item) error {
		for it := range in {
			if it == nil || !it.IsBuffer() {
				continue
			}
			target := filepath.Join(dir, it.Relative())
			if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrapf(err, "create directory for %s", target)
			}
			if err := afero.WriteFile(fs, target, it.Contents, 0o644); err != nil {
				return errors.Wrapf(err, "write %s", target)
			}
		}
		return nil
	}
}

// Pipe connects src, stages and dst with unbuffered channels and runs them
// concurrently. Each channel is closed when the goroutine writing to it
// returns. The first error cancels every other goroutine and is returned.
func Pipe(ctx context.Context, src Producer, dst Consumer, stages ...Stage) error {
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()

	ch := make(chan *item.Item)
	p.Go(func(ctx context.Context) error {
		defer close(ch)
		return src(ctx, ch)
	})

	in := (<-chan *item.Item)(ch)
	for _, stage := range stages {
		stageIn := in
		out := make(chan *item.Item)
		p.Go(func(ctx context.Context) error {
			defer close(out)
			// Drain what is left so an upstream writer never blocks on a
			// stage that already returned.
			defer func() {
				for range stageIn {
				}
			}()
			return stage(ctx, stageIn, out)
		})
		in = out
	}

	last := in
	p.Go(func(ctx context.Context) error {
		defer func() {
			for range last {
			}
		}()
		return dst(ctx, last)
	})

	return p.Wait()
}

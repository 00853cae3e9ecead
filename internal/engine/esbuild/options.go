package esbuild

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/Iron-Ham/packstream/internal/buildconfig"
)

// DefaultOutputPath is used when a target sets no output path.
const DefaultOutputPath = "dist"

var sourcemaps = map[string]api.SourceMap{
	"":         api.SourceMapNone,
	"none":     api.SourceMapNone,
	"inline":   api.SourceMapInline,
	"linked":   api.SourceMapLinked,
	"external": api.SourceMapExternal,
	"both":     api.SourceMapInlineAndExternal,
}

var formats = map[string]api.Format{
	"":     api.FormatDefault,
	"iife": api.FormatIIFE,
	"cjs":  api.FormatCommonJS,
	"esm":  api.FormatESModule,
}

var platforms = map[string]api.Platform{
	"":        api.PlatformBrowser,
	"browser": api.PlatformBrowser,
	"node":    api.PlatformNode,
	"neutral": api.PlatformNeutral,
}

var languageTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"deno":    api.EngineDeno,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

var loaders = map[string]api.Loader{
	"js":      api.LoaderJS,
	"jsx":     api.LoaderJSX,
	"ts":      api.LoaderTS,
	"tsx":     api.LoaderTSX,
	"json":    api.LoaderJSON,
	"css":     api.LoaderCSS,
	"text":    api.LoaderText,
	"base64":  api.LoaderBase64,
	"dataurl": api.LoaderDataURL,
	"file":    api.LoaderFile,
	"binary":  api.LoaderBinary,
	"copy":    api.LoaderCopy,
	"empty":   api.LoaderEmpty,
}

// outputPath resolves a target's output directory against cwd.
func outputPath(cwd string, t *buildconfig.Target) string {
	out := t.Output.Path
	if out == "" {
		out = DefaultOutputPath
	}
	if filepath.IsAbs(out) {
		return filepath.Clean(out)
	}
	return filepath.Join(cwd, out)
}

// buildOptions translates a target into esbuild options. Artifacts are kept
// in memory; the target writes them to its output filesystem itself.
func buildOptions(cwd string, t *buildconfig.Target) (api.BuildOptions, error) {
	opts := api.BuildOptions{
		AbsWorkingDir: cwd,
		Outdir:        outputPath(cwd, t),
		Bundle:        true,
		Write:         false,
		Metafile:      true,
		LogLevel:      api.LogLevelSilent,
		Splitting:     t.Splitting,
		External:      t.External,
		ChunkNames:    t.Output.ChunkNames,
		AssetNames:    t.Output.AssetNames,
		Define:        make(map[string]string, len(t.Define)+1),
	}

	var ok bool
	if opts.Sourcemap, ok = sourcemaps[t.Sourcemap]; !ok {
		return opts, fmt.Errorf("unknown sourcemap mode %q", t.Sourcemap)
	}
	if opts.Format, ok = formats[t.Format]; !ok {
		return opts, fmt.Errorf("unknown output format %q", t.Format)
	}
	if opts.Platform, ok = platforms[t.Platform]; !ok {
		return opts, fmt.Errorf("unknown platform %q", t.Platform)
	}

	switch t.Mode {
	case "", "development":
	case "production":
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	default:
		return opts, fmt.Errorf("unknown mode %q", t.Mode)
	}
	if t.Mode != "" {
		opts.Define["process.env.NODE_ENV"] = fmt.Sprintf("%q", t.Mode)
	}
	for k, v := range t.Define {
		opts.Define[k] = v
	}

	for _, s := range t.Syntax {
		if err := applySyntax(&opts, s); err != nil {
			return opts, err
		}
	}

	if len(t.Loader) > 0 {
		opts.Loader = make(map[string]api.Loader, len(t.Loader))
		for ext, name := range t.Loader {
			l, ok := loaders[name]
			if !ok {
				return opts, fmt.Errorf("unknown loader %q for %s", name, ext)
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			opts.Loader[ext] = l
		}
	}

	setEntryPoints(&opts, t)
	return opts, nil
}

// applySyntax maps "es2019" to a language target and "chrome100" to an
// engine constraint.
func applySyntax(opts *api.BuildOptions, s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if lt, ok := languageTargets[s]; ok {
		opts.Target = lt
		return nil
	}
	for name, engine := range engineNames {
		if version, found := strings.CutPrefix(s, name); found && version != "" {
			opts.Engines = append(opts.Engines, api.Engine{Name: engine, Version: version})
			return nil
		}
	}
	return fmt.Errorf("unknown syntax target %q", s)
}

// setEntryPoints sets the entry points. A plain "[name]" pattern is rendered
// per entry so that entry names chosen by the configuration survive; patterns
// using other placeholders are left to esbuild.
func setEntryPoints(opts *api.BuildOptions, t *buildconfig.Target) {
	pattern := t.Output.EntryNames
	if pattern == "" {
		pattern = "[name]"
	}

	if strings.Contains(pattern, "[dir]") || strings.Contains(pattern, "[hash]") {
		opts.EntryNames = pattern
		for _, name := range t.EntryNames() {
			opts.EntryPoints = append(opts.EntryPoints, t.Entry[name])
		}
		return
	}

	for _, name := range t.EntryNames() {
		opts.EntryPointsAdvanced = append(opts.EntryPointsAdvanced, api.EntryPoint{
			InputPath:  t.Entry[name],
			OutputPath: strings.ReplaceAll(pattern, "[name]", name),
		})
	}
}

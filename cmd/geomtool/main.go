// geomtool is a CLI utility for inspecting and converting GEOM meshes and RIG
// skeletons.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/simgeom/internal/config"
	"github.com/Faultbox/simgeom/internal/logger"
	"github.com/Faultbox/simgeom/pkg/formats"
	"github.com/Faultbox/simgeom/pkg/namemap"
)

// app carries the state shared by every command.
type app struct {
	cfg    *config.Config
	names  *namemap.Resolver
	stdout io.Writer
}

type command func(a *app, args []string) error

var commands = map[string]command{
	"info":      cmdInfo,
	"dump":      cmdDump,
	"rig":       cmdRig,
	"roundtrip": cmdRoundTrip,
	"encode":    cmdEncode,
	"hash":      cmdHash,
	"names":     cmdNames,
	"gltf":      cmdGLTF,
	"config":    cmdConfig,
}

func main() {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage(os.Stdout)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitFromConfig(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	a, err := newApp(cfg, os.Stdout)
	if err != nil {
		logger.Error("loading name table", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Names.Watch {
		w, err := namemap.Watch(ctx, cfg.NamesPath(), a.names, logger.Named("namemap"))
		if err != nil {
			logger.Warn("name table watch disabled", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	if err := cmd(a, args[1:]); err != nil {
		logger.Error(name+" failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

// newApp loads the name table named by cfg. A missing table yields an
// empty one.
func newApp(cfg *config.Config, stdout io.Writer) (*app, error) {
	path := cfg.NamesPath()
	table, err := namemap.Load(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("no name table, hashes stay unresolved", zap.String("path", path))
		table = namemap.NewTable()
	case err != nil:
		return nil, err
	default:
		logger.Debug("name table loaded",
			zap.String("path", path),
			zap.Int("bones", len(table.Bones)),
			zap.Int("shader", len(table.Shader)))
	}

	names := namemap.NewResolver(table,
		namemap.WithFallback(cfg.FallbackPolicy()),
		namemap.WithLogger(logger.Named("namemap")))
	return &app{cfg: cfg, names: names, stdout: stdout}, nil
}

// reader returns a GEOM reader configured from the app settings.
func (a *app) reader() *formats.GEOMReader {
	return &formats.GEOMReader{Names: a.names, Strict: a.cfg.Codec.Strict}
}

// readGEOM decodes the GEOM file at path.
func (a *app) readGEOM(path string) (*formats.GEOM, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading GEOM file")
	}
	g, err := a.reader().Parse(data)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "decoding %s", path)
	}
	logger.Debug("decoded GEOM",
		zap.String("path", path),
		zap.Int("vertices", len(g.Vertices)),
		zap.Int("faces", len(g.Faces)),
		zap.Int("bones", len(g.Bones)))
	return g, data, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `geomtool - GEOM mesh and RIG skeleton utility

Usage:
  geomtool [global options] <command> [options]

Global options:
  -config <file>     Config file (default ./geomtool.yaml or user config dir)
  -names <file>      Name table (json, yaml or toml)
  -fallback <mode>   Unknown hashes: hex (default) or strict
  -strict            Validate chunk tags, versions, offsets and faces
  -watch             Reload the name table when it changes
  -debug             Enable debug logging

Commands:
  info <file.simgeom>...                     Show mesh summary
  dump [-format yaml|json|spew] <file>       Dump a decoded mesh
  rig [-format yaml|json|spew] [-tree] <file> Dump a skeleton
  roundtrip <file.simgeom>...                Decode, encode and compare
  encode <doc.yaml|doc.json> <out.simgeom>   Build a mesh from a dump
  hash <name>...                             Print 32 and 64-bit name hashes
  names rebuild [-from file] <table> [name...] Merge bone names into a table
  names gen [-bones a,b] [-shader c,d] <table> Create a table from names
  gltf [-rig file.rig] <file.simgeom> <out.glb> Export to binary glTF
  config [show | save [file]]                Print or save the effective config

Examples:
  geomtool info afBody.simgeom
  geomtool -names hashmap.json dump -format json afBody.simgeom
  geomtool names rebuild hashmap.json b__L_Thigh__ b__R_Thigh__
  geomtool gltf -rig auRig.rig afBody.simgeom afBody.glb
  geomtool -names hashmap.toml -strict config save`)
}

package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/simgeom/internal/config"
	"github.com/Faultbox/simgeom/internal/fsutil"
	"github.com/Faultbox/simgeom/internal/inspect"
	"github.com/Faultbox/simgeom/internal/logger"
	"github.com/Faultbox/simgeom/pkg/formats"
	"github.com/Faultbox/simgeom/pkg/gltfexport"
	"github.com/Faultbox/simgeom/pkg/namemap"
)

// errUsage reports bad command arguments.
var errUsage = errors.New("invalid arguments")

func usage(format string, args ...interface{}) error {
	return errors.Wrapf(errUsage, "usage: geomtool "+format, args...)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func cmdInfo(a *app, args []string) error {
	if len(args) < 1 {
		return usage("info <file.simgeom>...")
	}

	for i, path := range args {
		g, data, err := a.readGEOM(path)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(a.stdout)
		}
		printInfo(a, path, len(data), g)
	}
	return nil
}

func printInfo(a *app, path string, size int, g *formats.GEOM) {
	w := a.stdout
	fmt.Fprintf(w, "File:      %s (%d bytes)\n", path, size)
	for _, k := range g.InternalChunks {
		fmt.Fprintf(w, "Chunk:     %s\n", k)
	}
	for _, k := range g.ExternalResources {
		fmt.Fprintf(w, "External:  %s\n", k)
	}
	if g.HasShader() {
		fmt.Fprintf(w, "Shader:    %s (%d parameters)\n", g.EmbeddedID, len(g.ShaderData))
	} else {
		fmt.Fprintln(w, "Shader:    none")
	}
	fmt.Fprintf(w, "Merge:     group %d, sort order %d\n", g.MergeGroup, g.SortOrder)
	fmt.Fprintf(w, "Vertices:  %d (%d UV channels)\n", len(g.Vertices), g.UVChannels())
	if layout, err := g.Layout(); err == nil {
		fmt.Fprintf(w, "Layout:    %s (%d bytes)\n", layout, layout.Stride())
	}
	fmt.Fprintf(w, "Faces:     %d\n", len(g.Faces))
	fmt.Fprintf(w, "Bones:     %d (skin controller %d)\n", len(g.Bones), g.SkinController)
	for _, b := range g.Bones {
		fmt.Fprintf(w, "  %s\n", b)
	}
	fmt.Fprintf(w, "TGI list:  %d\n", len(g.TGIList))
	for i, k := range g.TGIList {
		fmt.Fprintf(w, "  [%d] %s\n", i, k)
	}
}

func cmdDump(a *app, args []string) error {
	fs := newFlagSet("dump")
	format := fs.String("format", "yaml", "Output format: yaml, json or spew")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usage("dump [-format yaml|json|spew] <file.simgeom>")
	}

	f, err := inspect.ParseFormat(*format)
	if err != nil {
		return err
	}
	g, _, err := a.readGEOM(fs.Arg(0))
	if err != nil {
		return err
	}
	return inspect.Dump(a.stdout, g, f)
}

func cmdRig(a *app, args []string) error {
	fs := newFlagSet("rig")
	format := fs.String("format", "yaml", "Output format: yaml, json or spew")
	tree := fs.Bool("tree", false, "Print the bone hierarchy instead of a dump")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usage("rig [-format yaml|json|spew] [-tree] <file.rig>")
	}

	f, err := inspect.ParseFormat(*format)
	if err != nil {
		return err
	}
	rig, err := formats.ParseRIGFile(fs.Arg(0))
	if err != nil {
		return errors.Wrapf(err, "decoding %s", fs.Arg(0))
	}
	logger.Debug("decoded RIG", zap.String("path", fs.Arg(0)), zap.Int("bones", len(rig.Bones)))

	if !*tree {
		return inspect.Dump(a.stdout, rig, f)
	}
	fmt.Fprintf(a.stdout, "%s (%d bones)\n", rig.Name, len(rig.Bones))
	for i := range rig.Bones {
		if rig.Bones[i].IsRoot() {
			printBone(a, rig, i, 1)
		}
	}
	return nil
}

func printBone(a *app, rig *formats.RIG, i, depth int) {
	b := &rig.Bones[i]
	mirror := ""
	if b.MirrorIndex != formats.NoBone && int(b.MirrorIndex) != i {
		mirror = " <-> " + rig.Bones[b.MirrorIndex].Name
	}
	fmt.Fprintf(a.stdout, "%s[%d] %s%s\n", strings.Repeat("  ", depth), i, b.Name, mirror)
	for _, c := range rig.Children(i) {
		printBone(a, rig, c, depth+1)
	}
}

func cmdRoundTrip(a *app, args []string) error {
	if len(args) < 1 {
		return usage("roundtrip <file.simgeom>...")
	}

	failed := 0
	for _, path := range args {
		if err := roundTrip(a, path); err != nil {
			fmt.Fprintf(a.stdout, "FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(a.stdout, "ok   %s\n", path)
	}
	if failed > 0 {
		return errors.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

// roundTrip decodes, encodes and decodes path again, comparing both the
// bytes and the documents.
func roundTrip(a *app, path string) error {
	g, data, err := a.readGEOM(path)
	if err != nil {
		return err
	}
	out, err := formats.EncodeGEOM(g)
	if err != nil {
		return errors.Wrap(err, "encoding")
	}
	again, err := a.reader().Parse(out)
	if err != nil {
		return errors.Wrap(err, "decoding re-encoded data")
	}

	g.InternalLocations, again.InternalLocations = nil, nil
	if !reflect.DeepEqual(g, again) {
		return errors.New("documents differ after round trip")
	}
	if !bytes.Equal(data, out) {
		logger.Info("bytes differ after round trip",
			zap.String("path", path),
			zap.Int("original", len(data)),
			zap.Int("encoded", len(out)))
	}
	return nil
}

func cmdEncode(a *app, args []string) error {
	if len(args) != 2 {
		return usage("encode <doc.yaml|doc.json> <out.simgeom>")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return errors.Wrap(err, "opening document")
	}
	defer f.Close()

	var g formats.GEOM
	if err := inspect.Load(f, &g, inspect.FormatFor(args[0])); err != nil {
		return errors.Wrapf(err, "parsing %s", args[0])
	}
	if err := formats.WriteGEOMFile(args[1], &g); err != nil {
		return errors.Wrapf(err, "writing %s", args[1])
	}
	logger.Info("encoded GEOM",
		zap.String("path", args[1]),
		zap.Int("vertices", len(g.Vertices)),
		zap.Int("faces", len(g.Faces)))
	return nil
}

func cmdHash(a *app, args []string) error {
	if len(args) < 1 {
		return usage("hash <name>...")
	}
	for _, name := range args {
		fmt.Fprintf(a.stdout, "%-32s 0x%08X 0x%016X\n", name, namemap.Hash32(name), namemap.Hash64(name))
	}
	return nil
}

func cmdNames(a *app, args []string) error {
	if len(args) < 1 {
		return usage("names <rebuild|gen> ...")
	}
	switch args[0] {
	case "rebuild":
		return cmdNamesRebuild(a, args[1:])
	case "gen":
		return cmdNamesGen(a, args[1:])
	default:
		return usage("names <rebuild|gen> ...")
	}
}

func cmdNamesRebuild(a *app, args []string) error {
	fs := newFlagSet("names rebuild")
	from := fs.String("from", "", "File with one bone name per line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usage("names rebuild [-from file] <table> [name...]")
	}

	names := fs.Args()[1:]
	if *from != "" {
		more, err := readNameList(*from)
		if err != nil {
			return err
		}
		names = append(names, more...)
	}
	if len(names) == 0 {
		return usage("names rebuild [-from file] <table> [name...]")
	}

	path := fs.Arg(0)
	table, err := namemap.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		table, err = namemap.NewTable(), nil
	}
	if err != nil {
		return err
	}

	res := a.names
	if path != a.cfg.NamesPath() {
		res = namemap.NewResolver(table, namemap.WithLogger(logger.Named("namemap")))
	}
	return res.RebuildNames(path, names)
}

func cmdNamesGen(a *app, args []string) error {
	fs := newFlagSet("names gen")
	bones := fs.String("bones", "", "Comma-separated bone names")
	shader := fs.String("shader", "", "Comma-separated shader and parameter names")
	bonesFile := fs.String("bones-file", "", "File with one bone name per line")
	shaderFile := fs.String("shader-file", "", "File with one shader name per line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usage("names gen [-bones a,b] [-shader c,d] [-bones-file f] [-shader-file f] <table>")
	}

	boneNames := splitList(*bones)
	shaderNames := splitList(*shader)
	if *bonesFile != "" {
		more, err := readNameList(*bonesFile)
		if err != nil {
			return err
		}
		boneNames = append(boneNames, more...)
	}
	if *shaderFile != "" {
		more, err := readNameList(*shaderFile)
		if err != nil {
			return err
		}
		shaderNames = append(shaderNames, more...)
	}

	table := namemap.FromNames(boneNames, shaderNames)
	if err := table.Save(fs.Arg(0)); err != nil {
		return err
	}
	logger.Info("name table generated",
		zap.String("path", fs.Arg(0)),
		zap.Int("bones", len(table.Bones)),
		zap.Int("shader", len(table.Shader)))
	return nil
}

// cmdConfig prints the effective configuration or saves it, so flags given
// once can become the defaults.
func cmdConfig(a *app, args []string) error {
	if len(args) == 0 || args[0] == "show" {
		return inspect.Dump(a.stdout, a.cfg, inspect.FormatYAML)
	}
	if args[0] != "save" || len(args) > 2 {
		return usage("config [show | save [file]]")
	}

	path := config.UserConfigFile()
	var err error
	if len(args) == 2 {
		path = args[1]
		err = a.cfg.SaveTo(path)
	} else {
		err = a.cfg.Save()
	}
	if err != nil {
		return errors.Wrapf(err, "saving config to %s", path)
	}
	fmt.Fprintf(a.stdout, "Saved config to %s\n", path)
	return nil
}

func cmdGLTF(a *app, args []string) error {
	fs := newFlagSet("gltf")
	rigPath := fs.String("rig", "", "RIG file to skin the mesh with")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return usage("gltf [-rig file.rig] <file.simgeom> <out.glb>")
	}

	g, _, err := a.readGEOM(fs.Arg(0))
	if err != nil {
		return err
	}
	var rig *formats.RIG
	if *rigPath != "" {
		if rig, err = formats.ParseRIGFile(*rigPath); err != nil {
			return errors.Wrapf(err, "decoding %s", *rigPath)
		}
	}

	doc, err := gltfexport.Export(g, rig)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gltfexport.WriteBinary(&buf, doc); err != nil {
		return errors.Wrap(err, "encoding glTF")
	}
	if err := fsutil.WriteFileAtomic(fs.Arg(1), buf.Bytes(), 0o644); err != nil {
		return err
	}
	logger.Info("exported glTF",
		zap.String("path", fs.Arg(1)),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Bool("skinned", rig != nil))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readNameList reads one name per line, skipping blanks and # comments.
func readNameList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening name list")
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, errors.Wrap(sc.Err(), "reading name list")
}

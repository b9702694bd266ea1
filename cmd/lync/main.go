// Command lync is the Lyn-to-C compiler's entry point: it wires
// internal/driver.Compile to a small cobra CLI (spec §6's CLI surface
// plus the tokens/ast debugging subcommands, grounded on the teacher's
// cmd/solast/main.go root-command-plus-subcommands shape).
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/th13vn/lync/internal/driver"
	"github.com/th13vn/lync/internal/lexer"
	"github.com/th13vn/lync/pkg/parser"
	"github.com/th13vn/lync/pkg/version"
)

// build/tokens/ast command flags (spec §6: -d 0..3 debug level, -o
// 0..2 optimization level; -h/-v are cobra defaults).
var (
	debugLevel int
	optLevel   int
	outputFile string
	tolerant   bool
)

func main() {
	info := version.Detect()

	rootCmd := &cobra.Command{
		Use:   "lync",
		Short: "Lync: a Lyn-to-C compiler",
		Long: `Lync compiles Lyn source (lex, parse, aspect-weave, macro-expand,
type-infer, optimize) and emits portable C.`,
		Version: info.String(),
	}

	buildCmd := &cobra.Command{
		Use:   "build [file]",
		Short: "Compile a Lyn source file to C",
		Long: `Build runs the full pipeline and writes the emitted C source.
If no file is specified or '-' is given, reads from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBuild,
	}
	buildCmd.Flags().IntVarP(&debugLevel, "debug", "d", 0, "Debug level (0..3)")
	buildCmd.Flags().IntVarP(&optLevel, "opt", "o", 1, "Optimization level (0..2)")
	buildCmd.Flags().StringVar(&outputFile, "out", "", "Output file (default: stdout)")
	buildCmd.Flags().BoolVar(&tolerant, "tolerant", false, "Tolerant mode (collect parse errors)")

	tokensCmd := &cobra.Command{
		Use:   "tokens [file]",
		Short: "Print the token stream for a Lyn source file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTokens,
	}

	astCmd := &cobra.Command{
		Use:   "ast [file]",
		Short: "Parse a Lyn source file and print its AST as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAST,
	}
	astCmd.Flags().BoolVar(&tolerant, "tolerant", false, "Tolerant mode (collect parse errors)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build and version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(info.String())
			return nil
		},
	}

	rootCmd.AddCommand(buildCmd, tokensCmd, astCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	if debugLevel < 0 || debugLevel > 3 {
		return fmt.Errorf("debug level must be 0..3, got %d", debugLevel)
	}
	if optLevel < 0 || optLevel > 2 {
		return fmt.Errorf("optimization level must be 0..2, got %d", optLevel)
	}

	input, file, err := readInput(args)
	if err != nil {
		return err
	}

	res, err := driver.Compile(input, driver.Options{
		File:       file,
		Tolerant:   tolerant,
		DebugLevel: debugLevel,
		OptLevel:   optLevel,
	})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	for _, w := range res.Warnings {
		fmt.Fprintln(os.Stderr, w.Error())
	}
	for _, e := range res.Errors {
		fmt.Fprintln(os.Stderr, e.Error())
	}

	return writeOutput([]byte(res.C))
}

func runTokens(cmd *cobra.Command, args []string) error {
	input, _, err := readInput(args)
	if err != nil {
		return err
	}

	lx := lexer.New(input)
	for {
		tok, err := lx.Next()
		if err != nil {
			return fmt.Errorf("lex: %w", err)
		}
		fmt.Printf("%4d:%-3d %-12s %q\n", tok.Line, tok.Column, tok.Kind, tok.Lexeme)
		if tok.Kind == lexer.EOF {
			break
		}
	}
	return nil
}

func runAST(cmd *cobra.Command, args []string) error {
	input, file, err := readInput(args)
	if err != nil {
		return err
	}

	prog, err := parser.Parse(input, &parser.Options{Tolerant: tolerant, File: file})
	if err != nil && !tolerant {
		return fmt.Errorf("parse: %w", err)
	}

	out, err := json.MarshalIndent(prog, "", "  ")
	if err != nil {
		return fmt.Errorf("encode AST: %w", err)
	}
	return writeOutput(out)
}

func readInput(args []string) (content, file string, err error) {
	var reader io.Reader

	if len(args) == 0 || args[0] == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return "", "", fmt.Errorf("cannot open file: %w", err)
		}
		defer f.Close()
		reader = f
		file = args[0]
	}

	b, err := io.ReadAll(reader)
	if err != nil {
		return "", "", fmt.Errorf("cannot read input: %w", err)
	}
	return string(b), file, nil
}

func writeOutput(data []byte) error {
	var writer io.Writer

	if outputFile == "" {
		writer = os.Stdout
	} else {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("cannot write output: %w", err)
	}
	if outputFile == "" {
		fmt.Println()
	}
	return nil
}

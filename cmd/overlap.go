package cmd

import (
	"bufio"
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/vaser-bio/ramgo/config"
	"github.com/vaser-bio/ramgo/internal/engine"
	"github.com/vaser-bio/ramgo/internal/overlap"
	"github.com/vaser-bio/ramgo/internal/pool"
	"github.com/vaser-bio/ramgo/internal/seqio"
)

// overlapCmd finds minimizer-based overlaps between two sets of
// sequences: targets are indexed once, queries are mapped against that
// index and printed as PAF.
var overlapCmd = &cobra.Command{
	Use:   "overlap targets.fa queries.fa",
	Short: "Find minimizer-based overlaps between DNA sequences",
	Long: `
Sketch and index the target sequences, then map every query sequence
against that index, chaining collinear seeds into overlaps and printing
them in PAF-like format.

With --pair, each file must hold exactly one sequence; the first is
mapped directly against the second, without building an index.`,
	Args: cobra.ExactArgs(2),
	Run:  runOverlap,
}

func init() {
	overlapCmd.Flags().String("preset", "", "chaining preset: ava or map")
	overlapCmd.Flags().Int("threads", 0, "worker pool size (0 = number of CPUs)")
	overlapCmd.Flags().Int("k", 0, "k-mer length (0 = preset/default)")
	overlapCmd.Flags().Int("w", 0, "minimizer window length (0 = preset/default)")
	overlapCmd.Flags().Uint32("m", 0, "chaining score floor (0 = preset/default)")
	overlapCmd.Flags().Uint32("g", 0, "lhs-position gap-split threshold (0 = preset/default)")
	overlapCmd.Flags().Uint32("n", 0, "chain-length floor (0 = preset/default)")
	overlapCmd.Flags().Uint32("best-n", 0, "keep only the best-n highest scoring overlaps (0 = unbounded)")
	overlapCmd.Flags().Bool("hpc", false, "homopolymer-compress k-mers")
	overlapCmd.Flags().Bool("robust-winnowing", false, "suppress duplicate-tie minimizers at emission")
	overlapCmd.Flags().Bool("avoid-equal", false, "suppress self-matches (lhs_id == rhs_id)")
	overlapCmd.Flags().Bool("avoid-symmetric", false, "suppress the symmetric half of an all-versus-all mapping")
	overlapCmd.Flags().Float64("frequency", 0, "occurrence-frequency cutoff in [0,1]; 0 disables it")
	overlapCmd.Flags().Uint32("begin-end-k", 0, "map only the first/last K bases of long queries; 0 disables it")
	overlapCmd.Flags().Bool("pair", false, "map the first file's single sequence against the second file's, without an index")
	overlapCmd.Flags().StringP("out", "o", "", "output file; empty means stdout")

	viper.BindPFlag("threads", overlapCmd.Flags().Lookup("threads"))
	viper.BindPFlag("robust-winnowing", overlapCmd.Flags().Lookup("robust-winnowing"))
	viper.BindPFlag("hpc", overlapCmd.Flags().Lookup("hpc"))
	viper.BindPFlag("avoid-equal", overlapCmd.Flags().Lookup("avoid-equal"))
	viper.BindPFlag("avoid-symmetric", overlapCmd.Flags().Lookup("avoid-symmetric"))
	viper.BindPFlag("frequency", overlapCmd.Flags().Lookup("frequency"))
	viper.BindPFlag("begin-end-k", overlapCmd.Flags().Lookup("begin-end-k"))
	viper.BindPFlag("out", overlapCmd.Flags().Lookup("out"))

	rootCmd.AddCommand(overlapCmd)
}

func runOverlap(cmd *cobra.Command, args []string) {
	log := logrus.WithField("command", "overlap")

	preset, _ := cmd.Flags().GetString("preset")
	if err := config.ApplyPreset(preset); err != nil {
		log.WithError(err).Fatal("invalid preset")
	}
	bindOverrideFlags(cmd)

	cfg, err := config.New()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	threads := cfg.Threads
	if threads < 1 {
		threads = runtime.NumCPU()
	}
	p := pool.New(threads)
	e := engine.New(cfg.Engine.K, cfg.Engine.W, cfg.Engine.M, cfg.Engine.G, cfg.Engine.N,
		cfg.Engine.BestN, cfg.Engine.ReduceWinSz, cfg.Engine.RobustWinnowing, cfg.Engine.HPC, p)

	out := os.Stdout
	if cfg.Out != "" {
		f, err := os.Create(cfg.Out)
		if err != nil {
			log.WithError(err).Fatal("unable to open output file")
		}
		defer f.Close()
		out = f
	}
	writer := bufio.NewWriter(out)
	defer writer.Flush()

	if pair, _ := cmd.Flags().GetBool("pair"); pair {
		runPairMode(e, args[0], args[1], writer, log)
		return
	}
	runIndexMode(e, cfg, args[0], args[1], writer, log)
}

// bindOverrideFlags copies explicitly-set numeric flags into viper with
// their native types, so viper.Unmarshal's mapstructure decode (which is
// not weakly typed) still succeeds. k, w, m, g and n left unset or set to
// 0 defer to whatever Defaults/ApplyPreset already seeded; an explicit
// --best-n 0 is kept, meaning unbounded.
func bindOverrideFlags(cmd *cobra.Command) {
	if f := cmd.Flags(); f.Changed("k") {
		if v, _ := f.GetInt("k"); v != 0 {
			viper.Set("k", v)
		}
	}
	if f := cmd.Flags(); f.Changed("w") {
		if v, _ := f.GetInt("w"); v != 0 {
			viper.Set("w", v)
		}
	}
	if f := cmd.Flags(); f.Changed("m") {
		if v, _ := f.GetUint32("m"); v != 0 {
			viper.Set("m", v)
		}
	}
	if f := cmd.Flags(); f.Changed("g") {
		if v, _ := f.GetUint32("g"); v != 0 {
			viper.Set("g", v)
		}
	}
	if f := cmd.Flags(); f.Changed("n") {
		if v, _ := f.GetUint32("n"); v != 0 {
			viper.Set("n", v)
		}
	}
	if f := cmd.Flags(); f.Changed("best-n") {
		v, _ := f.GetUint32("best-n")
		viper.Set("best-n", v)
	}
}

func runIndexMode(e *engine.Engine, cfg config.Config, targetsPath, queriesPath string, writer *bufio.Writer, log *logrus.Entry) {
	targets, err := seqio.ReadFile(targetsPath, 0)
	if err != nil {
		log.WithError(err).Fatal("unable to read targets")
	}
	if err := e.BuildIndex(targets); err != nil {
		log.WithError(err).Fatal("unable to build index")
	}
	if cfg.Map.Frequency > 0 {
		if err := e.SetFrequencyCutoff(cfg.Map.Frequency); err != nil {
			log.WithError(err).Fatal("invalid frequency")
		}
	}

	queries, err := seqio.ReadFile(queriesPath, uint32(len(targets)))
	if err != nil {
		log.WithError(err).Fatal("unable to read queries")
	}

	targetByID := make(map[uint32]seqio.Sequence, len(targets))
	for _, t := range targets {
		targetByID[t.ID] = t
	}

	progress := mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
	bar := progress.AddBar(int64(len(queries)),
		mpb.PrependDecorators(
			decor.Name("mapping queries: ", decor.WC{W: len("mapping queries: "), C: decor.DindentRight}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	for _, query := range queries {
		var overlaps []overlap.Overlap
		var err error
		if cfg.Map.BeginEndK > 0 {
			overlaps, err = e.MapBeginEnd(query, cfg.Map.AvoidEqual, cfg.Map.AvoidSymmetric, cfg.Map.BeginEndK)
		} else {
			overlaps, err = e.Map(query, cfg.Map.AvoidEqual, cfg.Map.AvoidSymmetric, engine.MapOptions{})
		}
		if err != nil {
			log.WithError(err).WithField("query", query.Name).Error("mapping failed")
			bar.Increment()
			continue
		}
		for _, o := range overlaps {
			target := targetByID[o.RhsID]
			fmt.Fprintln(writer, overlap.PAF(o, query.Name, len(query.Data), target.Name, len(target.Data)))
		}
		bar.Increment()
	}
	progress.Wait()
}

func runPairMode(e *engine.Engine, lhsPath, rhsPath string, writer *bufio.Writer, log *logrus.Entry) {
	lhsSeqs, err := seqio.ReadFile(lhsPath, 0)
	if err != nil {
		log.WithError(err).Fatal("unable to read the first pair file")
	}
	rhsSeqs, err := seqio.ReadFile(rhsPath, 0)
	if err != nil {
		log.WithError(err).Fatal("unable to read the second pair file")
	}
	if len(lhsSeqs) != 1 || len(rhsSeqs) != 1 {
		log.Fatal("--pair requires exactly one sequence in each of the two input files")
	}

	overlaps, err := e.MapPair(lhsSeqs[0], rhsSeqs[0], engine.MapPairOptions{})
	if err != nil {
		log.WithError(err).Fatal("pair mapping failed")
	}
	for _, o := range overlaps {
		fmt.Fprintln(writer, overlap.PAF(o, lhsSeqs[0].Name, len(lhsSeqs[0].Data), rhsSeqs[0].Name, len(rhsSeqs[0].Data)))
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ahrav/refclust/infrastructure/tabular"
	"github.com/ahrav/refclust/infrastructure/units"
	"github.com/ahrav/refclust/internal/application"
	"github.com/ahrav/refclust/internal/domain"
)

func newClusterCmd(a *app) *cobra.Command {
	var (
		input     string
		output    string
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster samples from a Mash distance table",
		Example: `  refclust cluster -i mash_distances.tsv -o clusters.yaml
  refclust cluster -i mash_distances.tsv -o clusters.yaml -t 0.05`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if threshold < 0 {
				return fmt.Errorf("%w: threshold must be non-negative, got %v", domain.ErrInvalidConfiguration, threshold)
			}
			graph, err := a.loader.LoadEmbedded(cmd.Context(), "preclustering")
			if err != nil {
				return err
			}

			inputs := domain.NewState().WithMultiple(map[string]any{
				domain.KeyDistanceTablePath.Name(): input,
				domain.KeyClustersOutput.Name():    output,
				domain.KeyDistanceThreshold.Name(): threshold,
			})
			out, err := a.run(cmd.Context(), graph, inputs)
			if err != nil {
				return err
			}

			assignment, err := domain.MustGet(out, domain.KeyClusterAssignment)
			if err != nil {
				return err
			}
			a.log.Info("clustering complete",
				"samples", len(assignment.Samples),
				"clusters", assignment.Len(),
				"sizes", assignment.Sizes(),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%d samples in %d clusters written to %s\n",
				len(assignment.Samples), assignment.Len(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Mash distance table")
	cmd.Flags().StringVarP(&output, "output", "o", tabular.ClustersFileName, "clusters YAML output path")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", units.DefaultDistanceThreshold, "largest distance joining two samples")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newMockClusterCmd(a *app) *cobra.Command {
	var (
		inputs []string
		output string
	)
	cmd := &cobra.Command{
		Use:   "mock-cluster [flags] [ASSEMBLY...]",
		Short: "Assign every assembly to cluster 1",
		Long: `mock-cluster writes a clusters file placing every assembly in a single
cluster. Use it when preclustering is disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			assemblies := append(slices.Clone(inputs), args...)
			if len(assemblies) == 0 {
				return fmt.Errorf("%w: no assemblies given", domain.ErrInvalidConfiguration)
			}

			p, err := a.pipeline("mock_clustering",
				unitSpec{unitType: application.UnitTypeMockClusters, id: "mock"},
				unitSpec{unitType: application.UnitTypeClustersYAML, id: "write"},
			)
			if err != nil {
				return err
			}

			state := domain.NewState().WithMultiple(map[string]any{
				domain.KeyAssemblies.Name():     assemblies,
				domain.KeyClustersOutput.Name(): output,
			})
			out, err := a.run(cmd.Context(), p, state)
			if err != nil {
				return err
			}

			assignment, err := domain.MustGet(out, domain.KeyClusterAssignment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d samples in 1 cluster written to %s\n", len(assignment.Samples), output)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&inputs, "input", "i", nil, "assembly files (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", tabular.ClustersFileName, "clusters YAML output path")
	return cmd
}

func newBestRefCmd(a *app) *cobra.Command {
	var (
		inputDir    string
		inputFiles  []string
		outputDir   string
		prefix      string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "best-ref",
		Short: "Rank ReferenceSeeker candidates and pick the best reference",
		Example: `  refclust best-ref --input-dir referenceseeker -o out
  refclust best-ref --input-files s1.tab,s2.tab -o out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.pipeline("best_reference",
				unitSpec{unitType: application.UnitTypeReferenceSeekerResults, id: "results", config: map[string]any{
					"max_concurrency": concurrency,
					"prefix":          prefix,
					"input_dir":       inputDir,
				}},
				unitSpec{unitType: application.UnitTypeCandidateAggregate, id: "aggregate"},
				unitSpec{unitType: application.UnitTypeCandidateRank, id: "rank"},
				unitSpec{unitType: application.UnitTypeScoresCSV, id: "scores"},
			)
			if err != nil {
				return err
			}

			state := domain.NewState().WithMultiple(map[string]any{
				domain.KeyScoresOutput.Name():        filepath.Join(outputDir, tabular.ScoresFileName),
				domain.KeyBestReferenceOutput.Name(): filepath.Join(outputDir, tabular.BestReferenceFileName),
			})
			if len(inputFiles) > 0 {
				state = domain.With(state, domain.KeyResultFiles, inputFiles)
			}

			out, err := a.run(cmd.Context(), p, state)
			if err != nil {
				return err
			}

			ranking, err := domain.MustGet(out, domain.KeyRanking)
			if err != nil {
				return err
			}
			a.log.Info("ranking complete", "candidates", len(ranking.Candidates), "best", ranking.Best)
			fmt.Fprintln(cmd.OutOrStdout(), ranking.Best)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input-dir", "", "directory searched for result tables")
	cmd.Flags().StringSliceVar(&inputFiles, "input-files", nil, "result tables (repeatable)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory")
	cmd.Flags().StringVar(&prefix, "prefix", tabular.DefaultResultPrefix, "file name prefix stripped to obtain sample names")
	cmd.Flags().IntVar(&concurrency, "concurrency", tabular.DefaultMaxConcurrency, "tables parsed at once")
	cmd.MarkFlagsMutuallyExclusive("input-dir", "input-files")
	cmd.MarkFlagsOneRequired("input-dir", "input-files")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var (
		workflow      string
		mash          string
		resultsDir    string
		resultFiles   []string
		assemblies    []string
		clustersOut   string
		scoresOut     string
		bestOut       string
		threshold     float64
		resultsPrefix string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workflow file or a built-in workflow",
		Long: `run executes a workflow definition. --workflow accepts a YAML file or the
name of a built-in workflow (see "refclust workflows"). Input and output
flags seed the workflow state; flags left unset are not seeded.`,
		Example: `  refclust run --workflow juno_snp --mash mash.tsv --results-dir rs \
    --clusters-out out/clusters.yaml --scores-out out/scores_refseq_candidates.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			graph, err := a.loadWorkflow(cmd, workflow)
			if err != nil {
				return err
			}

			state := domain.NewState()
			set := func(flag string, key string, v any) {
				if cmd.Flags().Changed(flag) {
					state = state.WithRaw(key, v)
				}
			}
			set("mash", domain.KeyDistanceTablePath.Name(), mash)
			set("result-files", domain.KeyResultFiles.Name(), resultFiles)
			set("assemblies", domain.KeyAssemblies.Name(), assemblies)
			set("clusters-out", domain.KeyClustersOutput.Name(), clustersOut)
			set("scores-out", domain.KeyScoresOutput.Name(), scoresOut)
			set("best-out", domain.KeyBestReferenceOutput.Name(), bestOut)
			set("threshold", domain.KeyDistanceThreshold.Name(), threshold)

			if resultsDir != "" {
				files, err := tabular.FindReferenceSeekerResults(resultsDir, resultsPrefix)
				if err != nil {
					return err
				}
				state = domain.With(state, domain.KeyResultFiles, files)
			}
			if scoresOut != "" && !cmd.Flags().Changed("best-out") {
				state = domain.With(state, domain.KeyBestReferenceOutput,
					filepath.Join(filepath.Dir(scoresOut), tabular.BestReferenceFileName))
			}

			out, err := a.run(cmd.Context(), graph, state)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if assignment, ok := domain.Get(out, domain.KeyClusterAssignment); ok {
				fmt.Fprintf(w, "clusters: %d samples in %d clusters\n", len(assignment.Samples), assignment.Len())
			}
			if best, ok := domain.Get(out, domain.KeyBestCandidate); ok {
				fmt.Fprintf(w, "best reference: %s\n", best)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "workflow YAML file or built-in workflow name")
	cmd.Flags().StringVar(&mash, "mash", "", "Mash distance table")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "", "directory searched for ReferenceSeeker tables")
	cmd.Flags().StringSliceVar(&resultFiles, "result-files", nil, "ReferenceSeeker tables (repeatable)")
	cmd.Flags().StringVar(&resultsPrefix, "results-prefix", tabular.DefaultResultPrefix, "result table file name prefix")
	cmd.Flags().StringSliceVar(&assemblies, "assemblies", nil, "assembly files for mock clustering (repeatable)")
	cmd.Flags().StringVar(&clustersOut, "clusters-out", "", "clusters YAML output path")
	cmd.Flags().StringVar(&scoresOut, "scores-out", "", "candidate scores CSV output path")
	cmd.Flags().StringVar(&bestOut, "best-out", "", "best reference output path (default next to --scores-out)")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", units.DefaultDistanceThreshold, "override the workflow's clustering threshold")
	cmd.MarkFlagsMutuallyExclusive("results-dir", "result-files")
	_ = cmd.MarkFlagRequired("workflow")
	return cmd
}

// loadWorkflow loads name as a file when one exists, otherwise as a
// built-in workflow.
func (a *app) loadWorkflow(cmd *cobra.Command, name string) (*application.Graph, error) {
	if _, err := os.Stat(name); err == nil {
		return a.loader.LoadFromFile(cmd.Context(), name)
	}
	return a.loader.LoadEmbedded(cmd.Context(), name)
}

func newWorkflowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List built-in workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range application.EmbeddedWorkflows() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

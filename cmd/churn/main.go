// Command churn runs the gym retention study against a member CSV and
// writes figures plus a markdown summary.
//
// Usage:
//
//	churn -data gym_churn.csv -out report/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/churn"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/log"
)

func main() {
	var (
		dataPath = flag.String("data", "", "member CSV to analyze (required)")
		outDir   = flag.String("out", "report", "directory for figures and summary.md")
		seed     = flag.Int64("seed", 42, "random seed for the split and the forest")
		testSize = flag.Float64("test-size", 0.2, "hold-out fraction in (0, 1)")
		trees    = flag.Int("trees", 100, "number of trees in the random forest")
		k        = flag.Int("k", 5, "neighbor count for KNN")
		alpha    = flag.Float64("alpha", 1.0, "ridge regularization strength")
		logLevel = flag.String("log-level", "info", "log level: debug, info, warn or error")
	)
	flag.Parse()

	log.SetDefault(log.NewConsoleLogger(os.Stderr, log.ParseLevel(*logLevel)))

	if *dataPath == "" {
		fmt.Fprintln(os.Stderr, "churn: -data is required")
		flag.Usage()
		os.Exit(2)
	}

	study := churn.NewStudy(churn.Config{
		DataPath: *dataPath,
		OutDir:   *outDir,
		Seed:     *seed,
		TestSize: *testSize,
		Trees:    *trees,
		K:        *k,
		Alpha:    *alpha,
	})

	result, err := study.Run()
	if err != nil {
		log.GetLogger().Error("Study failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Best model: %s\n", result.Best)
	for _, m := range result.Models {
		fmt.Printf("  %-24s accuracy %.3f  precision %.3f  recall %.3f  auc %.3f\n",
			m.Name, m.Accuracy, m.Matrix.Precision(), m.Matrix.Recall(), m.AUC)
	}
	if result.ReportPath != "" {
		fmt.Printf("Report written to %s\n", result.ReportPath)
	}
}

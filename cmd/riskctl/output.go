package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/yungbote/neurobridge-risk/internal/model"
	"github.com/yungbote/neurobridge-risk/internal/risk"
	"github.com/yungbote/neurobridge-risk/internal/scoring"
	"github.com/yungbote/neurobridge-risk/internal/similarity"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printPrediction(w io.Writer, p risk.Prediction) error {
	tw := table(w)
	fmt.Fprintf(tw, "student\t%s\n", p.StudentID)
	if p.TargetModule != "" {
		fmt.Fprintf(tw, "module\t%s\n", p.TargetModule)
	}
	fmt.Fprintf(tw, "failure probability\t%.4f\n", p.Probability)
	fmt.Fprintf(tw, "predicted fail\t%t\n", p.PredictedLabel)
	fmt.Fprintf(tw, "category\t%s\n", p.Category)
	fmt.Fprintf(tw, "profile\t%s\n", p.Profile)
	fmt.Fprintf(tw, "using model\t%t\n", p.UsingModel())
	if p.BundleVersion != "" {
		fmt.Fprintf(tw, "bundle\t%s\n", p.BundleVersion)
	}
	fmt.Fprintf(tw, "snapshot\t%s\n", p.SnapshotID)
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(p.Recommendations) > 0 {
		fmt.Fprintln(w, "recommendations:")
		for _, r := range p.Recommendations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
	return nil
}

func printFeatures(w io.Writer, r scoring.FeatureReport) error {
	fmt.Fprintf(w, "student %s (%s), peers: %s, module: %s, combo: %s\n",
		r.StudentID, r.Program, r.PeerScope, r.ModuleSource, r.ComboSource)
	tw := table(w)
	fmt.Fprintln(tw, "COLUMN\tVALUE\tSOURCE")
	for _, e := range r.Explanation {
		fmt.Fprintf(tw, "%s\t%.4f\t%s\n", e.Column, e.Value, e.Source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(r.Defaulted) > 0 {
		fmt.Fprintf(w, "defaulted: %s\n", strings.Join(r.Defaulted, ", "))
	}
	return nil
}

func printSimilar(w io.Writer, mods []similarity.ModuleCount) error {
	if len(mods) == 0 {
		_, err := fmt.Fprintln(w, "no failed modules among similar students")
		return err
	}
	tw := table(w)
	fmt.Fprintln(tw, "MODULE\tFAILED BY")
	for _, m := range mods {
		fmt.Fprintf(tw, "%s\t%d\n", m.Module, m.Count)
	}
	return tw.Flush()
}

func printForecast(w io.Writer, f scoring.Forecast) error {
	fmt.Fprintf(w, "student %s (%s, year %d), mean %.2f/20 over %d modules\n",
		f.StudentID, f.Program, f.Year, f.MeanGrade, f.ModulesDone)
	if len(f.Entries) == 0 {
		_, err := fmt.Fprintln(w, "no remaining modules in program")
		return err
	}
	tw := table(w)
	fmt.Fprintln(tw, "MODULE\tSUCCESS\tCATEGORY\tEST. GRADE\tMENTION\tDIFFICULTY")
	for _, e := range f.Entries {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%.2f\t%s\t%s\n",
			e.Module, e.SuccessProbability, e.Category, e.EstimatedGrade, e.Mention, e.Difficulty)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "high risk: %d, moderate: %d, recommended: %d\n",
		f.Summary.HighRisk, f.Summary.Moderate, f.Summary.Recommended)
	return err
}

func printBundle(w io.Writer, info model.Info) error {
	tw := table(w)
	fmt.Fprintf(tw, "version\t%s\n", info.Version)
	fmt.Fprintf(tw, "checksum\t%s\n", info.Checksum)
	fmt.Fprintf(tw, "classifier\t%s\n", info.Kind)
	fmt.Fprintf(tw, "columns\t%d\n", info.Columns)
	fmt.Fprintf(tw, "clusters\t%d\n", info.Clusters)
	fmt.Fprintf(tw, "threshold\t%.1f\n", info.Threshold)
	fmt.Fprintf(tw, "programs\t%s\n", strings.Join(info.Programs, ", "))
	fmt.Fprintf(tw, "poles\t%s\n", strings.Join(info.Poles, ", "))
	return tw.Flush()
}

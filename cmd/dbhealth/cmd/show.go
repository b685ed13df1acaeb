package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dbhealth/internal/report/jsonfile"
)

// showFindings prints every finding, not only the domain table.
var showFindings bool

// showCmd represents the show command.
var showCmd = &cobra.Command{
	Use:   "show <artifact.json>",
	Short: "Print a saved health report",
	Long:  "Load a JSON report written by a previous run and print its metadata, domain statuses and findings.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := jsonfile.Load(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		printArtifact(os.Stdout, doc, showFindings)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showFindings, "findings", false, "print warnings and recommendations")
}

// printArtifact prints a loaded artifact document.
func printArtifact(w io.Writer, doc map[string]any, findings bool) {
	meta := asMap(doc["metadata"])
	data := asMap(doc["data"])
	target := asMap(data["target"])
	summary := asMap(data["summary"])
	counts := asMap(summary["findings"])

	fmt.Fprintf(w, "timestamp:    %v\n", meta["timestamp"])
	fmt.Fprintf(w, "version:      %v (tool %v)\n", meta["version"], meta["tool_version"])
	fmt.Fprintf(w, "target:       %v:%v", target["host"], target["port"])
	if v, ok := target["version"]; ok {
		fmt.Fprintf(w, " (MySQL %v)", v)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "level:        %v\n", data["level"])
	fmt.Fprintf(w, "status:       %v\n", summary["status"])
	fmt.Fprintf(w, "findings:     %v warnings, %v critical, %v recommendations\n",
		counts["warnings"], counts["critical"], counts["recommendations"])
	fmt.Fprintln(w)

	domains, _ := data["domains"].([]any)
	for _, raw := range domains {
		d := asMap(raw)
		line := fmt.Sprintf("  %-14v %v", d["domain"], d["status"])
		if e, ok := d["error"]; ok {
			line += fmt.Sprintf(" (%v)", e)
		}
		fmt.Fprintln(w, line)

		if !findings {
			continue
		}
		for _, key := range []string{"warnings", "recommendations"} {
			list, _ := d[key].([]any)
			for _, f := range list {
				fm := asMap(f)
				fmt.Fprintf(w, "      [%v] %v\n", fm["severity"], fm["message"])
			}
		}
	}
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

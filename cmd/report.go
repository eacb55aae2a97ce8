package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sales-intel/internal/intel"
	"github.com/sells-group/sales-intel/internal/model"
)

var (
	reportKind    string
	reportTenant  string
	reportAccount string
	reportFormat  string
)

var reportCmd = &cobra.Command{
	Use:   "report <url>",
	Short: "Generate or fetch the cached report for one company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if reportFormat != "json" && reportFormat != "yaml" {
			return eris.Errorf("unsupported format: %s", reportFormat)
		}

		env, err := initReportEnv(ctx, "report")
		if err != nil {
			return err
		}
		defer env.Close()

		req := intel.Request{
			Subject:   args[0],
			TenantID:  reportTenant,
			AccountID: reportAccount,
		}
		if reportKind != "" {
			req.Kind = model.ReportKind(reportKind)
		}

		resp, err := env.Service.Report(ctx, req)
		if err != nil {
			return eris.Wrap(err, "report")
		}
		return writeResponse(cmd.OutOrStdout(), reportFormat, resp)
	},
}

func writeResponse(w io.Writer, format string, resp *intel.Response) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	default:
		return writeJSON(w, resp)
	}
}

func init() {
	reportCmd.Flags().StringVar(&reportKind, "kind", "", "report kind: basic or comprehensive (default from pipeline.default_kind)")
	reportCmd.Flags().StringVar(&reportTenant, "tenant", "", "tenant id")
	reportCmd.Flags().StringVar(&reportAccount, "account", "", "account id to attach the report to")
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(reportCmd)
}

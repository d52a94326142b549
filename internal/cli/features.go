package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mohammed-shakir/geoportal-wfs/internal/core/model"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/ogc"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/wfsclient"
)

type filterFlags struct {
	bbox  string
	geom  string
	where []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.bbox, "bbox", "", "bounding box minX,minY,maxX,maxY")
	cmd.Flags().StringVar(&f.geom, "geom", "", "geometry attribute tested by --bbox (default the_geom)")
	cmd.Flags().StringArrayVar(&f.where, "where", nil, "attribute equality filter k=v (repeatable, ANDed in order)")
}

// params keeps the order bbox, geom, then --where clauses as given
func (f *filterFlags) params(cmd *cobra.Command) (model.Params, error) {
	p := model.NewParams()
	if cmd.Flags().Changed("bbox") {
		p.Set(ogc.KeyBBox, f.bbox)
	}
	if cmd.Flags().Changed("geom") {
		p.Set(ogc.KeyGeom, f.geom)
	}
	for _, kv := range f.where {
		k, val, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return model.Params{}, fmt.Errorf("invalid --where %q, want k=v", kv)
		}
		if ogc.IsReserved(k) {
			return model.Params{}, fmt.Errorf("--where key %q is reserved", k)
		}
		p.Set(k, val)
	}
	return p, nil
}

func newFeaturesCommand(v *viper.Viper) *cobra.Command {
	var (
		ff         filterFlags
		limit      int
		start      int
		intersects string
		all        bool
		pageSize   int
		maxPages   int
	)
	cmd := &cobra.Command{
		Use:   "features <typeName>",
		Short: "Fetch the features of a type as GeoJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(v)
			if err != nil {
				return err
			}
			p, err := ff.params(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("limit") {
				p.SetInt(ogc.KeyLimit, limit)
			}
			if cmd.Flags().Changed("start") {
				p.SetInt(ogc.KeyStart, start)
			}

			client, err := newClient(cmd, v)
			if err != nil {
				return err
			}
			q := model.FeatureQuery{TypeName: args[0], Params: p, Intersects: intersects}
			fc, err := fetchFeatures(cmd, client, q, all, pageSize, maxPages)
			if err != nil {
				return fmt.Errorf("get features: %w", err)
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(fc)
			}
			table := tablewriter.NewWriter(out)
			table.Header("ID", "Geometry", "Properties")
			for _, f := range fc.Features {
				props, _ := json.Marshal(f.Properties)
				_ = table.Append(f.ID, geometryType(f.Geometry), string(props))
			}
			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of features (count)")
	cmd.Flags().IntVar(&start, "start", 0, "index of the first feature (startIndex)")
	cmd.Flags().StringVar(&intersects, "intersects", "", "GeoJSON geometry the features must intersect")
	cmd.Flags().BoolVar(&all, "all", false, "page through every matching feature (ignores --limit)")
	cmd.Flags().IntVar(&pageSize, "page-size", 1000, "features per request with --all")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop --all after this many pages (0 means no cap)")
	return cmd
}

func fetchFeatures(cmd *cobra.Command, client *wfsclient.Client, q model.FeatureQuery, all bool, pageSize, maxPages int) (*model.FeatureCollection, error) {
	if !all {
		return client.GetFeatures(cmd.Context(), q)
	}
	body, err := client.GetAllFeaturesRaw(cmd.Context(), q, pageSize, maxPages)
	if err != nil {
		return nil, err
	}
	var fc model.FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	return &fc, nil
}

func geometryType(raw json.RawMessage) string {
	var g struct {
		Type string `json:"type"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &g) != nil || g.Type == "" {
		return "-"
	}
	return g.Type
}

func newFilterCommand() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print the CQL filter the given flags produce",
		Long:  "Print the cql_filter value wfsctl would send. Nothing is printed when no filter applies.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := ff.params(cmd)
			if err != nil {
				return err
			}
			if filter, ok := ogc.BuildCQLFilter(p); ok {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), filter)
				return err
			}
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

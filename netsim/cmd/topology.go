package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/netsim/config"
	"github.com/sarchlab/netsim/topology"
)

type topologyOptions struct {
	configPath string
	src, dst   int64
	direct     bool
}

func newTopologyCmd() *cobra.Command {
	o := &topologyOptions{}

	c := &cobra.Command{
		Use:   "topology",
		Short: "Print the route between two network nodes.",
		Long: "`topology --config FILE --src N --dst M` prints the path a " +
			"packet from node N to node M takes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd)
		},
	}

	c.Flags().StringVar(&o.configPath, "config", "", "Configuration file")
	c.Flags().Int64Var(&o.src, "src", 0, "Source node")
	c.Flags().Int64Var(&o.dst, "dst", 0, "Destination node")
	c.Flags().BoolVar(&o.direct, "direct", false,
		"Only consider the direct edge")
	_ = c.MarkFlagRequired("config")
	_ = c.MarkFlagRequired("src")
	_ = c.MarkFlagRequired("dst")

	return c
}

func (o *topologyOptions) run(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	network, err := cfg.BuildNetwork()
	if err != nil {
		return err
	}

	path, err := network.Route(
		topology.NodeID(o.src), topology.NodeID(o.dst), !o.direct)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "nodes:   %v\n", path.Nodes)
	fmt.Fprintf(out, "hops:    %d\n", path.Hops())
	fmt.Fprintf(out, "latency: %v\n", path.Latency)
	fmt.Fprintf(out, "jitter:  %v\n", path.Jitter)
	fmt.Fprintf(out, "loss:    %v\n", path.Loss)

	return nil
}

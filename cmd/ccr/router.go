package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"ccr-hq/gateway/pkg/cli"
)

var routerFlags struct {
	output string
}

var routerCmd = &cobra.Command{
	Use:   "router",
	Short: "Inspect and switch router groups",
}

var routerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List router groups",
	RunE:  runRouterList,
}

var routerShowCmd = &cobra.Command{
	Use:   "show <groupId>",
	Short: "Show a single router group's targets",
	Args:  cobra.ExactArgs(1),
	RunE:  runRouterShow,
}

var routerSwitchCmd = &cobra.Command{
	Use:   "switch <groupId>",
	Short: "Switch the active router group",
	Args:  cobra.ExactArgs(1),
	RunE:  runRouterSwitch,
}

func init() {
	rootCmd.AddCommand(routerCmd)
	routerCmd.AddCommand(routerListCmd, routerShowCmd, routerSwitchCmd)
	routerCmd.PersistentFlags().StringVarP(&routerFlags.output, "output", "o", "text", "output format: text or json")
}

func runRouterList(cmd *cobra.Command, args []string) error {
	client := newControlClient()
	status, body, err := client.do(http.MethodGet, "/router-groups", nil)
	if err != nil {
		return cli.NewCommandError("router list", err)
	}
	if status != http.StatusOK {
		return cli.NewCommandError("router list", fmt.Errorf("control api returned %d: %v", status, body["message"]))
	}

	if cli.OutputFormat(routerFlags.output) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, body)
	}

	fmt.Printf("Active group: %v\n", body["currentGroup"])
	groups, _ := body["groups"].([]any)
	for _, g := range groups {
		fmt.Printf("  - %v\n", g)
	}
	return nil
}

func runRouterShow(cmd *cobra.Command, args []string) error {
	client := newControlClient()
	status, body, err := client.do(http.MethodGet, "/router-groups/"+args[0], nil)
	if err != nil {
		return cli.NewCommandError("router show", err)
	}
	if status == http.StatusNotFound {
		return cli.NewCommandError("router show", fmt.Errorf("no such router group: %s", args[0]))
	}
	if status != http.StatusOK {
		return cli.NewCommandError("router show", fmt.Errorf("control api returned %d: %v", status, body["message"]))
	}

	if cli.OutputFormat(routerFlags.output) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, body)
	}

	fmt.Printf("Group: %s (active: %v)\n", args[0], body["isActive"])
	fmt.Printf("%+v\n", body["group"])
	return nil
}

func runRouterSwitch(cmd *cobra.Command, args []string) error {
	client := newControlClient()
	status, body, err := client.do(http.MethodPost, "/router-groups/switch", map[string]string{"groupId": args[0]})
	if err != nil {
		return cli.NewCommandError("router switch", err)
	}
	if status != http.StatusOK {
		return cli.NewCommandError("router switch", fmt.Errorf("control api returned %d: %v", status, body["message"]))
	}

	fmt.Printf("Switched to group %v\n", body["currentGroup"])
	return nil
}

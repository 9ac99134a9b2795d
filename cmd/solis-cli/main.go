// Command solis-cli is a thin terminal front end for the SolisCloud API.
//
// Credentials come from SOLIS_KEY_ID and SOLIS_KEY_SECRET; an optional
// SOLIS_DOMAIN overrides the default API endpoint.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hultenvp/soliscloud-golang/soliscloud"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if os.Args[1] == "endpoints" {
		for _, name := range soliscloud.Endpoints() {
			fmt.Println(name)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := newClient()

	switch os.Args[1] {
	case "stations":
		stationsCmd(ctx, client, os.Args[2:])
	case "station":
		stationCmd(ctx, client, os.Args[2:])
	case "inverters":
		invertersCmd(ctx, client, os.Args[2:])
	case "inverter":
		inverterCmd(ctx, client, os.Args[2:])
	case "alarms":
		alarmsCmd(ctx, client, os.Args[2:])
	case "raw":
		rawCmd(ctx, client, os.Args[2:])
	case "tree":
		treeCmd(ctx, client, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func newClient() *soliscloud.Client {
	keyID := os.Getenv("SOLIS_KEY_ID")
	secret := os.Getenv("SOLIS_KEY_SECRET")
	if keyID == "" || secret == "" {
		fatal("credentials", fmt.Errorf("SOLIS_KEY_ID and SOLIS_KEY_SECRET must be set"))
	}

	client, err := soliscloud.New(soliscloud.Config{
		KeyID:  keyID,
		Secret: []byte(secret),
		Domain: os.Getenv("SOLIS_DOMAIN"),
	})
	if err != nil {
		fatal("init client", err)
	}
	return client
}

func stationsCmd(ctx context.Context, client *soliscloud.Client, args []string) {
	fs := flag.NewFlagSet("stations", flag.ExitOnError)
	nmi := fs.String("nmi", "", "filter by NMI code")
	page := pageFlags(fs)
	_ = fs.Parse(args)

	records, err := client.UserStationList(ctx, *page, *nmi)
	if err != nil {
		fatal("list stations", err)
	}
	printJSON(records)
}

func stationCmd(ctx context.Context, client *soliscloud.Client, args []string) {
	if len(args) < 1 {
		fatal("station", fmt.Errorf("missing station id"))
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fatal("station", fmt.Errorf("invalid station id %q", args[0]))
	}

	detail, err := client.StationDetail(ctx, soliscloud.StationRef{ID: id})
	if err != nil {
		fatal("station detail", err)
	}
	printJSON(detail)
}

func invertersCmd(ctx context.Context, client *soliscloud.Client, args []string) {
	fs := flag.NewFlagSet("inverters", flag.ExitOnError)
	stationID := fs.Int64("station", 0, "restrict to one station")
	nmi := fs.String("nmi", "", "filter by NMI code")
	page := pageFlags(fs)
	_ = fs.Parse(args)

	records, err := client.InverterList(ctx, *page, *stationID, *nmi)
	if err != nil {
		fatal("list inverters", err)
	}
	printJSON(records)
}

func inverterCmd(ctx context.Context, client *soliscloud.Client, args []string) {
	if len(args) < 1 {
		fatal("inverter", fmt.Errorf("missing inverter serial or id"))
	}

	ref := soliscloud.DeviceRef{SN: args[0]}
	if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
		ref = soliscloud.DeviceRef{ID: id}
	}

	detail, err := client.InverterDetail(ctx, ref)
	if err != nil {
		fatal("inverter detail", err)
	}
	printJSON(detail)
}

func alarmsCmd(ctx context.Context, client *soliscloud.Client, args []string) {
	fs := flag.NewFlagSet("alarms", flag.ExitOnError)
	stationID := fs.Int64("station", 0, "station id")
	device := fs.String("device", "", "device serial")
	begin := fs.String("begin", "", "start date (YYYY-MM-DD)")
	end := fs.String("end", "", "end date (YYYY-MM-DD)")
	page := pageFlags(fs)
	_ = fs.Parse(args)

	records, err := client.AlarmList(ctx, *page, soliscloud.AlarmQuery{
		StationID: *stationID,
		DeviceSN:  *device,
		Begin:     *begin,
		End:       *end,
	})
	if err != nil {
		fatal("list alarms", err)
	}
	printJSON(records)
}

func rawCmd(ctx context.Context, client *soliscloud.Client, args []string) {
	if len(args) < 1 {
		fatal("raw", fmt.Errorf("missing endpoint name"))
	}

	params := map[string]any{}
	if len(args) > 1 {
		if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
			fatal("raw", fmt.Errorf("invalid params json: %w", err))
		}
	}

	data, err := client.CallEndpoint(ctx, args[0], params)
	if err != nil {
		fatal("call", err)
	}
	printJSON(data)
}

func treeCmd(ctx context.Context, client *soliscloud.Client, args []string) {
	fs := flag.NewFlagSet("tree", flag.ExitOnError)
	plantID := fs.Int64("plant", 0, "restrict to one plant")
	_ = fs.Parse(args)

	plants, err := client.Plants(ctx, *plantID)
	if err != nil {
		fatal("build tree", err)
	}
	for _, plant := range plants {
		fmt.Printf("plant %d %q %s %s %.0f W today %.1f kWh\n",
			plant.ID, plant.Name, plant.Type, plant.State,
			plant.PowerWatts, plant.DayEnergyKWh)
		for _, inverter := range plant.Inverters {
			fmt.Printf("  inverter %d %s %s %s %.0f W\n",
				inverter.ID, inverter.SN, inverter.Type, inverter.State,
				inverter.PowerWatts)
			for _, collector := range inverter.Collectors {
				fmt.Printf("    collector %d %s %s %s\n",
					collector.ID, collector.SN, collector.Model, collector.State)
			}
		}
	}
}

func pageFlags(fs *flag.FlagSet) *soliscloud.PageOptions {
	page := &soliscloud.PageOptions{}
	fs.IntVar(&page.PageNo, "page", 0, "page number")
	fs.IntVar(&page.PageSize, "page-size", 0, "page size")
	return page
}

func printJSON(raw json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(buf.String())
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: solis-cli <command> [flags]

commands:
  stations   [-nmi code] [-page n] [-page-size n]
  station    <id>
  inverters  [-station id] [-nmi code]
  inverter   <serial|id>
  alarms     -station id|-device sn -begin YYYY-MM-DD -end YYYY-MM-DD
  raw        <endpoint> [params-json]
  tree       [-plant id]
  endpoints`)
}

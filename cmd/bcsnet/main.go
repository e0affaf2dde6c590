package main

import (
	"flag"
	"os"
	"path"

	"github.com/iti/bcsnet"
	"github.com/iti/evt/evtm"
	log "github.com/sirupsen/logrus"
)

func useYAML(filename string) bool {
	ext := path.Ext(filename)
	return ext == ".yaml" || ext == ".yml" || ext == ".YAML"
}

func main() {
	log.SetFormatter(&log.TextFormatter{TimestampFormat: "15:04.000"})

	configPath := flag.String("config", "", "Path to run configuration (yaml or json)")
	topology := flag.Int("topology", 0, "Preset topology 1..9, overriding the configuration")
	seed := flag.String("seed", "", "Name of the random stream links are generated from")
	tracePath := flag.String("trace", "", "Write the deployment trace to this file")
	topoOut := flag.String("topo-out", "", "Write the built topology to this file")
	debug := flag.Bool("debug", false, "Log at debug level")
	showMetrics := flag.Bool("metrics", false, "Print construction metrics on exit")
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	// Load configuration
	// Parameters absent from the file keep their defaults
	cfg := bcsnet.DefaultSimCfg()
	if len(*configPath) > 0 {
		var err error
		cfg, err = bcsnet.ReadSimCfg(*configPath, useYAML(*configPath), nil)
		if err != nil {
			log.Fatal(err)
		}
	}
	if *topology > 0 {
		cfg.Topology = *topology
	}
	if len(*seed) > 0 {
		cfg.Seed = *seed
	}

	bn, err := bcsnet.BuildNetwork(cfg, bcsnet.NewRandSource(cfg.Seed))
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("built network of %d hosts and %d routers joined by %d links",
		bn.Graph.NumHosts, bn.Graph.NumRouters, len(bn.Graph.Physical))

	if len(*topoOut) > 0 {
		td := bn.Graph.Transform("bcsnet")
		if err := td.WriteToFile(*topoOut); err != nil {
			log.Fatal(err)
		}
	}

	bn.TraceMgr = bcsnet.CreateTraceManager("bcsnet", len(*tracePath) > 0)
	for host := 0; host < bn.Graph.NumHosts; host++ {
		if err := bn.TraceMgr.AddName(host, bcsnet.Host(host).String(), "host"); err != nil {
			log.Fatal(err)
		}
	}

	evtMgr := evtm.New()
	runtime := bcsnet.NewTraceRuntime()
	if _, err := bcsnet.Deploy(evtMgr, bn, runtime); err != nil {
		log.Fatal(err)
	}

	log.Info("Starting simulation")
	// run past the end time so the stop events scheduled there are dispatched
	evtMgr.Run(float64(bn.Cfg.EndTime) + 1.0)
	log.Info("Simulation finished")

	if len(*tracePath) > 0 {
		if err := bn.TraceMgr.WriteToFile(*tracePath, true); err != nil {
			log.Fatal(err)
		}
	}
	if *showMetrics {
		if err := bcsnet.DefaultMetrics().WriteText(os.Stdout); err != nil {
			log.Fatal(err)
		}
	}
}

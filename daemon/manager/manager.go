/*
 * Copyright The Kmesh Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at:
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
// Package manager: cgmesh daemon manager
package manager

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cilium/ebpf/rlimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"kmesh.net/cgmesh/daemon/manager/cleanup"
	"kmesh.net/cgmesh/daemon/manager/version"
	"kmesh.net/cgmesh/daemon/options"
	"kmesh.net/cgmesh/pkg/bpf"
	"kmesh.net/cgmesh/pkg/bpfcache"
	"kmesh.net/cgmesh/pkg/cgroup"
	"kmesh.net/cgmesh/pkg/logger"
	"kmesh.net/cgmesh/pkg/mesh"
	"kmesh.net/cgmesh/pkg/pid"
	"kmesh.net/cgmesh/pkg/sockdiag"
	"kmesh.net/cgmesh/pkg/status"
	"kmesh.net/cgmesh/pkg/telemetry"
)

const (
	pkgSubsys = "manager"
)

var log = logger.NewLoggerScope(pkgSubsys)

func NewCommand() *cobra.Command {
	configs := options.NewBootstrapConfigs()
	var (
		configFile string
		logToFile  bool
	)

	cmd := &cobra.Command{
		Use:          "cgmesh-daemon",
		Short:        "Start cgmesh daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := configs.LoadConfigFile(configFile, cmd.Flags()); err != nil {
					return err
				}
			}
			if logToFile {
				logger.EnableFileOutput()
			}
			printFlags(cmd.Flags())
			if err := configs.ParseConfigs(); err != nil {
				return err
			}
			return Execute(configs, setupSignalHandler())
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	configs.AttachFlags(cmd)
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "yaml config file, flags set on the command line take precedence")
	cmd.PersistentFlags().BoolVar(&logToFile, "log-to-file", true, "also write logs to a rotated file under /var/run/cgmesh")

	// add sub commands
	cmd.AddCommand(cleanup.NewCmd())
	cmd.AddCommand(version.NewCmd())

	return cmd
}

// Execute start daemon manager process and blocks until stopCh is closed.
func Execute(configs *options.BootstrapConfigs, stopCh <-chan struct{}) error {
	if configs.BpfConfig.PinnedMapsEnabled() {
		pidFile, err := pid.Create(pid.DefaultPidFilePath)
		if err != nil {
			return err
		}
		defer func() {
			if err := pidFile.Remove(); err != nil {
				log.Errorf("remove pid file: %v", err)
			}
		}()

		if err := rlimit.RemoveMemlock(); err != nil {
			log.Warnf("rlimit.RemoveMemlock failed: %v", err)
		}
	}

	loader := bpf.NewMapLoader(configs.BpfConfig)
	defer loader.Stop()
	if err := loader.Start(); err != nil {
		return err
	}
	log.Info("map loader start successfully")

	metrics := telemetry.NewMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(registry); err != nil {
		return err
	}

	cache := bpfcache.NewCache(loader.Maps())
	detector := mesh.NewDetector(sockdiag.NewLookuper(), cache, configs.BpfConfig.MarkPort, metrics)
	resolver := cgroup.NewResolver(cache, detector, metrics)

	statusServer := status.NewServer(configs, resolver, cache, registry)
	statusServer.StartServer()
	defer func() {
		_ = statusServer.StopServer()
	}()
	log.Infof("status server listening on %s", configs.StatusConfig.AdminAddr)

	<-stopCh
	return nil
}

func setupSignalHandler() <-chan struct{} {
	stopCh := make(chan struct{})
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	go func() {
		<-ch
		log.Warn("exiting...")
		close(stopCh)
	}()
	return stopCh
}

// printFlags print flags
func printFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(flag *pflag.Flag) {
		log.Infof("FLAG: --%s=%q", flag.Name, flag.Value)
	})
}

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
package status

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kmesh.net/cgmesh/daemon/options"
	"kmesh.net/cgmesh/pkg/bpfcache"
	"kmesh.net/cgmesh/pkg/cgroup"
	"kmesh.net/cgmesh/pkg/logger"
	"kmesh.net/cgmesh/pkg/mesh"
	"kmesh.net/cgmesh/pkg/version"
)

var log = logger.NewLoggerScope("status")

const (
	patternHelp       = "/help"
	patternOptions    = "/options"
	patternCgroups    = "/debug/cgroups"
	patternMarks      = "/debug/marks"
	patternResolve    = "/debug/resolve"
	patternLoggers    = "/debug/loggers"
	patternReadyProbe = "/debug/ready"
	patternMetrics    = "/status/metric"
	patternVersion    = "/version"

	httpTimeout = time.Second * 20
)

type Server struct {
	config   *options.BootstrapConfigs
	resolver *cgroup.Resolver
	cache    *bpfcache.Cache
	mux      *http.ServeMux
	server   *http.Server
}

func NewServer(configs *options.BootstrapConfigs, resolver *cgroup.Resolver, cache *bpfcache.Cache, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		config:   configs,
		resolver: resolver,
		cache:    cache,
		mux:      http.NewServeMux(),
	}
	s.server = &http.Server{
		Addr:         configs.StatusConfig.AdminAddr,
		Handler:      s.mux,
		ReadTimeout:  httpTimeout,
		WriteTimeout: httpTimeout,
	}

	s.mux.HandleFunc(patternHelp, s.httpHelp)
	s.mux.HandleFunc(patternOptions, s.httpOptions)
	s.mux.HandleFunc(patternCgroups, s.cgroups)
	s.mux.HandleFunc(patternMarks, s.marks)
	s.mux.HandleFunc(patternResolve, s.resolve)
	s.mux.HandleFunc(patternLoggers, s.loggersHandler)
	s.mux.HandleFunc(patternReadyProbe, s.readyProbe)
	s.mux.HandleFunc(patternVersion, s.versionHandler)
	if gatherer != nil {
		s.mux.Handle(patternMetrics, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if configs.StatusConfig.EnableProfiling {
		s.mux.HandleFunc("/debug/pprof/", pprof.Index)
		s.mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		s.mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		s.mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		s.mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return s
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) httpHelp(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "\t%s: %s\n", patternHelp,
		"print list of commands")
	fmt.Fprintf(w, "\t%s: %s\n", patternOptions,
		"print config options")
	fmt.Fprintf(w, "\t%s: %s\n", patternCgroups,
		"GET dumps the cgroup info map, DELETE ?id=<cgroup id> evicts one record")
	fmt.Fprintf(w, "\t%s: %s\n", patternMarks,
		"print the mark to address map")
	fmt.Fprintf(w, "\t%s: %s\n", patternResolve,
		"?pid=<pid> resolves the mesh membership of a process cgroup")
	fmt.Fprintf(w, "\t%s: %s\n", patternLoggers,
		"get or set logger levels")
	fmt.Fprintf(w, "\t%s: %s\n", patternMetrics,
		"prometheus metrics")
	fmt.Fprintf(w, "\t%s: %s\n", patternVersion,
		"print build version of the daemon")
}

func (s *Server) httpOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, s.config.String())
}

func (s *Server) cgroups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		infos, err := s.resolver.Dump()
		if err != nil {
			http.Error(w, fmt.Sprintf("dump cgroup info failed: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, infos)
	case http.MethodDelete:
		id, err := strconv.ParseUint(r.URL.Query().Get("id"), 0, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid cgroup id: %v", err), http.StatusBadRequest)
			return
		}
		if err := s.resolver.Evict(id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Infof("evicted cgroup(%d)", id)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "cgroup %d evicted\n", id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) marks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := s.cache.MarkIPDump()
	if err != nil {
		http.Error(w, fmt.Sprintf("dump marks failed: %v", err), http.StatusInternalServerError)
		return
	}
	res := make([]MarkEntry, 0, len(entries))
	for i := range entries {
		res = append(res, ConvertMarkEntry(&entries[i]))
	}
	writeJSON(w, res)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pid, err := strconv.Atoi(r.URL.Query().Get("pid"))
	if err != nil || pid <= 0 {
		http.Error(w, fmt.Sprintf("invalid pid %q", r.URL.Query().Get("pid")), http.StatusBadRequest)
		return
	}

	cfg := s.config.BpfConfig
	id, err := cgroup.IDForPid(cfg.HostProc, cfg.Cgroup2Path, pid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	res := ResolveResult{Pid: pid, CgroupID: id}
	if err := s.resolver.Resolve(mesh.NewProcEvent(cfg.HostProc, pid), id, &res.Info); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

func (s *Server) loggersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getLoggerLevel(w, r)
	case http.MethodPost:
		s.setLoggerLevel(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) getLoggerLevel(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, logger.GetLoggerNames())
		return
	}

	level, err := logger.GetLoggerLevel(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, LoggerInfo{Name: name, Level: level.String()})
}

func (s *Server) setLoggerLevel(w http.ResponseWriter, r *http.Request) {
	var info LoggerInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		http.Error(w, fmt.Sprintf("invalid logger info: %v", err), http.StatusBadRequest)
		return
	}
	if err := logger.SetLoggerLevel(info.Name, info.Level); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "set %s logger level to %s\n", info.Name, info.Level)
}

func (s *Server) readyProbe(w http.ResponseWriter, r *http.Request) {
	if s.resolver == nil || s.cache == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, version.Get())
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		http.Error(w, fmt.Sprintf("json marshal failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) StartServer() {
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Errorf("Failed to start status server: %v", err)
		}
	}()
}

func (s *Server) StopServer() error {
	return s.server.Close()
}

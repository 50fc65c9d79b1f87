package config

// DefaultRegistry builds a Registry pre-populated with the
// representative tuned parameters named in spec.md §6.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range []Descriptor{
		{Name: "dump_interval", Kind: KindTimeSpan, Default: "1h", Group: "dump"},
		{Name: "dump_warntime", Kind: KindTimeSpan, Default: "5m", Group: "dump"},
		{Name: "max_instr_count", Kind: KindInt, Default: "20000", Group: "muf"},
		{Name: "instr_slice", Kind: KindInt, Default: "2000", Group: "muf"},
		{Name: "max_process_limit", Kind: KindInt, Default: "2500", Group: "muf"},
		{Name: "max_plyr_processes", Kind: KindInt, Default: "40", Group: "muf"},
		{Name: "free_frames_pool", Kind: KindInt, Default: "200", Group: "muf"},
		{Name: "command_burst_size", Kind: KindInt, Default: "500", Group: "net"},
		{Name: "commands_per_time", Kind: KindInt, Default: "100", Group: "net"},
		{Name: "command_time_msec", Kind: KindInt, Default: "1000", Group: "net"},
		{Name: "max_output", Kind: KindInt, Default: "131072", Group: "net"},
		{Name: "mpi_max_commands", Kind: KindInt, Default: "2048", Group: "mpi"},
		{Name: "max_force_level", Kind: KindInt, Default: "1", Group: "muf", WriteTrust: 4},
		{Name: "allow_home", Kind: KindBool, Default: "yes", Group: "db"},
		{Name: "enable_prefix", Kind: KindBool, Default: "no", Group: "net"},
		{Name: "enable_match_yield", Kind: KindBool, Default: "no", Group: "muf"},
		{Name: "registration", Kind: KindBool, Default: "no", Group: "net", WriteTrust: 4},
		{Name: "playermax_limit", Kind: KindInt, Default: "500", Group: "net", WriteTrust: 4},
		{Name: "lock_envcheck", Kind: KindBool, Default: "no", Group: "lock"},
		{Name: "diskbase_propvals", Kind: KindBool, Default: "no", Group: "db", WriteTrust: 4},
		{Name: "muf_comments_strict", Kind: KindBool, Default: "yes", Group: "muf"},
		{Name: "optimize_muf", Kind: KindBool, Default: "yes", Group: "muf"},
		{Name: "idleboot", Kind: KindBool, Default: "yes", Group: "net"},
		{Name: "idle_ping_time", Kind: KindTimeSpan, Default: "1m", Group: "net"},
		{Name: "strict_god_priv", Kind: KindBool, Default: "yes", Group: "security", WriteTrust: 4},
	} {
		if d.ReadTrust == 0 && d.WriteTrust == 0 {
			d.WriteTrust = 3
		}
		r.Register(d)
	}
	return r
}

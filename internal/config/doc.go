// Package config provides configuration for the eventbench tool.
//
// Configuration is resolved in layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Flags      │  ← Highest priority
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← EVENTCORE_WORKLOAD_EVENTS=500
//	├─────────────────────────────┤
//	│  2. Config File             │  ← eventbench.toml / .yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Basic Usage
//
//	cfg, err := config.Load("eventbench.toml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Workload.Events)
//
// Flags are layered on top by binding them to the viper instance returned
// from NewViper before calling Decode.
package config

// Package config loads devstatic configuration.
//
// Configuration lives in devstatic.json (or devstatic.yaml / devstatic.yml)
// at the project root. Every field is optional; command line flags override
// whatever the file sets.
//
// # Configuration File Structure
//
//	{
//	  "port": 5000,
//	  "lrPort": 35729,
//	  "root": ".",
//	  "base": "public",
//	  "favicon": "images/favicon.ico",
//	  "templates": {
//	    "config\\.js": "templates/config.js.tmpl"
//	  },
//	  "rewrite": {
//	    "app(/.*)?": "public/app/index.html",
//	    "docs/(.*)": "public/docs/$1/index.html"
//	  },
//	  "mime": {
//	    ".tmpl": "text/html; charset=utf-8"
//	  },
//	  "watch": ["src"],
//	  "pollInterval": "500ms"
//	}
//
// The order of keys in "templates" and "rewrite" is significant: the first
// matching pattern wins, so both are decoded into ordered RuleMaps.
//
// # Usage
//
//	cfg, err := config.Discover(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Port:", cfg.Port)
package config

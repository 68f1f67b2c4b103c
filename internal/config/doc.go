// Package config manages the certnginx application configuration
// stored in YAML format.
//
// Configuration is stored in the user's home directory at
// ~/.config/certnginx/config.yaml and describes where nginx lives and
// where the tool keeps its working state.
//
// Example config.yaml:
//
//	server_root: /etc/nginx
//	root_file: nginx.conf
//	nginx_binary: /usr/sbin/nginx
//	work_dir: /var/lib/certnginx
//	ssl_port: "443"
//	dhparam_path: /etc/nginx/ssl-dhparams.pem
//
// A missing config file yields the defaults, so a stock Debian-style
// nginx install works with no configuration at all.
//
// # Thread Safety
//
// Config operations are NOT thread-safe. Callers must implement their
// own synchronization if accessing Config from multiple goroutines.
package config

package vhost

import (
	"github.com/ksyq12/certnginx/internal/parser"
	"github.com/ksyq12/certnginx/internal/store"
)

// Extract walks every loaded file and projects each server block into a
// VirtualHost view. Server blocks appear at a file's top level or under
// http (never under location), so extraction descends into every block
// except server and location bodies. Directives it does not understand
// are ignored.
//
// Extraction order is deterministic: files in sorted path order, blocks
// in tree order within each file.
func Extract(s *store.Store) []*VirtualHost {
	var vhosts []*VirtualHost
	for _, path := range s.Files() {
		f, _ := s.Get(path)
		vhosts = append(vhosts, extractFile(f)...)
	}
	return vhosts
}

// ExtractFile projects the server blocks of a single parsed file.
func ExtractFile(f *parser.ParsedFile) []*VirtualHost {
	return extractFile(f)
}

func extractFile(f *parser.ParsedFile) []*VirtualHost {
	var vhosts []*VirtualHost
	walkServers(f.Blocks, nil, func(b *parser.Block, path []int) {
		vhosts = append(vhosts, project(f, b, path))
	})
	return vhosts
}

// walkServers visits every server block, passing its child-index path.
func walkServers(blocks []*parser.Block, prefix []int, fn func(*parser.Block, []int)) {
	for i, b := range blocks {
		if b.Kind != parser.KindBlock {
			continue
		}
		path := append(append([]int(nil), prefix...), i)
		switch b.Name() {
		case "server":
			fn(b, path)
		case "location":
			// nginx forbids server blocks inside location.
		default:
			walkServers(b.Children, path, fn)
		}
	}
}

// project builds the VirtualHost view of one server block. All
// server_name occurrences contribute to the name set; a block with no
// listen directive defaults to *:80.
func project(f *parser.ParsedFile, server *parser.Block, path []int) *VirtualHost {
	v := &VirtualHost{
		FilePath:    f.Path,
		Path:        path,
		fileVersion: f.Version(),
	}

	seen := make(map[string]bool)
	for _, child := range server.Children {
		if child.Kind != parser.KindDirective {
			continue
		}
		switch child.Name() {
		case "server_name":
			for _, arg := range child.Args() {
				name := parser.Unquote(arg)
				if !seen[name] {
					seen[name] = true
					v.Names = append(v.Names, name)
				}
			}
		case "listen":
			if a := ParseAddr(child.Args()); a != nil {
				v.Addrs = append(v.Addrs, a)
			}
		}
	}

	if len(v.Addrs) == 0 {
		v.Addrs = append(v.Addrs, &Addr{Host: "*", Port: DefaultPort})
	}
	return v
}

// IPv6Info reports the port-scoped IPv6 posture of a vhost set: active
// when any address on the port binds IPv6, and only when any IPv6
// address on that port sets the ipv6only flag. nginx accepts the
// ipv6only parameter at most once per port across the whole config, so
// an injected IPv6 listen must omit it whenever it is already set.
func IPv6Info(vhosts []*VirtualHost, port string) (active, only bool) {
	for _, v := range vhosts {
		for _, a := range v.Addrs {
			if !a.IPv6 || a.EffectivePort() != port {
				continue
			}
			active = true
			if a.IPv6Only {
				only = true
			}
		}
	}
	return active, only
}

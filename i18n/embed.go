package i18n

import (
	"context"
	"io/fs"

	"github.com/kdsmith18542/tmplkit/source"
)

// FS returns Sources for message files inside a file system, typically an
// embed.FS compiled into the binary. Each dir is one location, in order.
//
// Example:
//
//	//go:embed messages/*.json
//	var messagesFS embed.FS
//
//	func init() {
//	    sources := append(i18n.FS(messagesFS, "messages"), i18n.Dirs("./overrides")...)
//	    i18nManager = i18n.NewManager(context.Background(), sources)
//	}
func FS(fsys fs.FS, dirs ...string) Sources {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	sources := make(Sources, 0, len(dirs))
	for _, dir := range dirs {
		dir := dir
		name := "embedded:" + dir
		sources = append(sources, Location{
			Name: name,
			open: func(context.Context) (source.Source, bool, error) {
				src, err := source.NewFS(name, fsys, dir)
				if err != nil {
					return nil, false, err
				}
				return source.NewObservable(src, "fs"), true, nil
			},
		})
	}
	return sources
}

// Package migrations 内嵌的建表脚本，按文件名顺序执行
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed *.sql
var files embed.FS

// Script 迁移脚本
type Script struct {
	Name string
	SQL  string
}

// Scripts 按文件名排序返回全部脚本
func Scripts() ([]Script, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	scripts := make([]Script, 0, len(names))
	for _, name := range names {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, Script{Name: name, SQL: string(data)})
	}
	return scripts, nil
}

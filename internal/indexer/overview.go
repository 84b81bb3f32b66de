package indexer

import (
	"context"
	"fmt"
	"path"

	"suitetoc/pkg/contract"
)

// WriteOverview 输出错误报告（按 sink）以及可选的套件概览页。
// destDir 为输出根下的相对目录。
func (x *Indexer) WriteOverview(ctx context.Context, destDir string, sink contract.ErrorSink) error {
	if x.opts.Overview.Template != "" {
		data := x.overviewData()
		if err := x.page(ctx, x.opts.Overview.Template, data, artifact(destDir, x.opts.Overview.Output)); err != nil {
			return err
		}
	}
	switch sink.Kind {
	case contract.SinkStream:
		for _, rec := range x.errs {
			if _, err := fmt.Fprintf(sink.Stream, "Error in %s: %s\n", rec.Location, rec.Message); err != nil {
				return err
			}
		}
	case contract.SinkTemplate:
		if sink.Template == "" || sink.Output == "" {
			return fmt.Errorf("%w: error sink needs template and output", contract.ErrInvalidInput)
		}
		data := x.overviewData()
		data["errors"] = x.Errors()
		return x.page(ctx, sink.Template, data, artifact(destDir, sink.Output))
	}
	return nil
}

func (x *Indexer) overviewData() map[string]any {
	data := x.baseData()
	data["contributors"] = x.Contributors()
	data["stats"] = x.stats
	return data
}

func artifact(destDir, name string) contract.ArtifactID {
	if destDir == "" || destDir == "." {
		return contract.ArtifactID(path.Clean(name))
	}
	return contract.ArtifactID(path.Join(contract.NormalizePath(destDir), name))
}

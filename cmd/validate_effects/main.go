// validate_effects 校验效果声明能否在指定页面上完整注册
//
// 用法：
//
//	go run ./cmd/validate_effects
//	go run ./cmd/validate_effects -effects data/effects.yaml -page data/page.yaml -v
//
// 有声明被拒绝时以非零状态退出；-v 额外打印每个触发器的起止滚动位置，
// 并提示在页面最大滚动偏移内永远不会到达的触发器。
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gonewx/scrollfx/pkg/clock"
	"github.com/gonewx/scrollfx/pkg/components"
	"github.com/gonewx/scrollfx/pkg/config"
	"github.com/gonewx/scrollfx/pkg/game"
	"github.com/gonewx/scrollfx/pkg/page"
	"github.com/gonewx/scrollfx/pkg/types"
)

// triggerRow 单个触发器的诊断信息
type triggerRow struct {
	Name        string
	Target      string
	Mode        components.TriggerMode
	Start, End  float64
	Unreachable bool
}

// result 一次校验的结果
type result struct {
	Report      *game.LoadReport
	Triggers    []triggerRow
	ScrollLimit float64
}

// validate 加载效果和页面，在独立的会话中注册全部声明并评估一次触发器
func validate(effectsPath, pagePath string) (*result, error) {
	cfg, err := config.LoadEffectsConfig(effectsPath)
	if err != nil {
		return nil, err
	}
	doc, err := page.LoadPage(pagePath)
	if err != nil {
		return nil, err
	}

	session := game.NewMotionSession(cfg, clock.New(), doc, doc, false)
	session.Triggers().Evaluate(0, doc.Layout())

	res := &result{Report: session.Report, ScrollLimit: doc.ScrollLimit()}
	for _, id := range session.Triggers().IDs() {
		trig, ok := session.Triggers().Trigger(id)
		if !ok {
			continue
		}
		res.Triggers = append(res.Triggers, triggerRow{
			Name:        trig.Name,
			Target:      trig.Target,
			Mode:        trig.Mode,
			Start:       trig.StartPos,
			End:         trig.EndPos,
			Unreachable: trig.StartPos > res.ScrollLimit,
		})
	}
	return res, nil
}

func printResult(w io.Writer, res *result, verbose bool) {
	r := res.Report
	fmt.Fprintf(w, "triggers=%d tweens=%d timelines=%d counters=%d typewriters=%d actions=%d rejected=%d\n",
		r.Triggers, r.Tweens, r.Timelines, r.Counters, r.Typewriters, r.Actions, r.Rejected())

	for _, err := range r.Errors {
		var cfgErr *types.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(w, "  ✗ %s [%s]: %v\n", cfgErr.Effect, cfgErr.Field, cfgErr.Err)
			continue
		}
		fmt.Fprintf(w, "  ✗ %v\n", err)
	}

	unreachable := 0
	for _, row := range res.Triggers {
		if row.Unreachable {
			unreachable++
			fmt.Fprintf(w, "  ⚠ %s (%s) starts at %.0f, beyond scroll limit %.0f\n", row.Name, row.Target, row.Start, res.ScrollLimit)
		}
	}

	if !verbose {
		return
	}
	fmt.Fprintf(w, "\nscroll limit: %.0f\n", res.ScrollLimit)
	for _, row := range res.Triggers {
		fmt.Fprintf(w, "  %-28s %-24s %-10s %8.0f → %8.0f\n", row.Name, row.Target, row.Mode, row.Start, row.End)
	}
	if unreachable == 0 {
		fmt.Fprintln(w, "\nall triggers reachable")
	}
}

func main() {
	effectsPath := flag.String("effects", "data/effects.yaml", "效果声明文件")
	pagePath := flag.String("page", "data/page.yaml", "页面文件")
	verbose := flag.Bool("v", false, "打印每个触发器的起止位置和加载日志")
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	res, err := validate(*effectsPath, *pagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	printResult(os.Stdout, res, *verbose)

	if res.Report.Rejected() > 0 {
		os.Exit(1)
	}
}

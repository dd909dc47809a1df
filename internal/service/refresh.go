package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger 将 cron 的日志接口适配到 zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Refresher 按 cron 表达式定时执行重新加载
type Refresher struct {
	logger *zap.Logger
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRefresher 创建定时刷新，spec 支持标准五段式和 @every 1h 这类描述符
func NewRefresher(logger *zap.Logger, spec string, job func(ctx context.Context)) (*Refresher, error) {
	cl := cronLogger{sugar: logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	r := &Refresher{
		logger: logger,
		cron:   c,
		ctx:    ctx,
		cancel: cancel,
	}

	if _, err := c.AddFunc(spec, func() {
		r.logger.Info("Scheduled dataset refresh")
		job(r.ctx)
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start 启动调度
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (r *Refresher) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
}

// Entries 已注册的任务数量
func (r *Refresher) Entries() int {
	return len(r.cron.Entries())
}

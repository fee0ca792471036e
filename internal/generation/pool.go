package generation

import (
	"sync"

	"github.com/Linn0813/ai-demo-service/pkg/types"
)

// job 單個功能點的生成工作
type job struct {
	point types.FunctionPoint
}

// unitResult 單個功能點的生成結果
type unitResult struct {
	point    types.FunctionPoint
	cases    []types.TestCase
	warnings []string
	source   string
	failed   bool // 重試耗盡，降級為告警
}

// pool 單次生成任務範圍內的有界 worker 池。
// 單生產者（聚合 goroutine 所在的 Run）透過 submit 投遞工作，
// workers 個消費者併發處理；全部 worker 退出後 resultCh 關閉，
// 聚合端以 range 讀到自然結束。
type pool struct {
	jobCh    chan job
	resultCh chan unitResult
	wg       sync.WaitGroup
}

// newPool 啟動 workers 個處理 goroutine，每個工作交給 run 執行
func newPool(workers, queueLen int, run func(job) unitResult) *pool {
	p := &pool{
		jobCh:    make(chan job, queueLen),
		resultCh: make(chan unitResult, queueLen),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobCh {
				p.resultCh <- run(j)
			}
		}()
	}

	go func() {
		p.wg.Wait()
		close(p.resultCh)
	}()

	return p
}

// submit 投遞一個工作；必須在 close 之前呼叫
func (p *pool) submit(j job) {
	p.jobCh <- j
}

// close 宣告不再有新工作，workers 排空隊列後退出
func (p *pool) close() {
	close(p.jobCh)
}

// results 聚合端讀取結果的通道，所有 worker 退出後關閉
func (p *pool) results() <-chan unitResult {
	return p.resultCh
}

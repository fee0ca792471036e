package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Linn0813/ai-demo-service/internal/generation"
	"github.com/Linn0813/ai-demo-service/internal/matcher"
	"github.com/Linn0813/ai-demo-service/internal/taskregistry"
	"github.com/Linn0813/ai-demo-service/pkg/types"
)

// minDocLength 需求文檔的最小長度（字符數）
const minDocLength = 10

// maxLimit limit 參數的上限
const maxLimit = 50

// extractRequest 提取異步任務請求
type extractRequest struct {
	RequirementDoc string `json:"requirement_doc" binding:"required"`
}

// generateRequest 生成異步任務請求
type generateRequest struct {
	RequirementDoc          string                `json:"requirement_doc" binding:"required"`
	ConfirmedFunctionPoints []types.FunctionPoint `json:"confirmed_function_points" binding:"required"`
	MaxWorkers              int                   `json:"max_workers"`
	Limit                   int                   `json:"limit"`
}

// rematchRequest 單個功能點的同步重匹配請求
type rematchRequest struct {
	RequirementDoc string                `json:"requirement_doc" binding:"required"`
	FunctionPoint  types.FunctionPoint   `json:"function_point" binding:"required"`
	AllPoints      []types.FunctionPoint `json:"all_points"`
}

// asyncResponse 異步任務受理響應
type asyncResponse struct {
	TaskID   types.TaskID     `json:"task_id"`
	TaskType types.TaskKind   `json:"task_type"`
	Status   types.TaskStatus `json:"status"`
	Message  string           `json:"message"`
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// handleExtractAsync POST /api/v1/function-modules/extract-async
func (s *Server) handleExtractAsync(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "requirement_doc 为必填字段")
		return
	}
	if len([]rune(strings.TrimSpace(req.RequirementDoc))) < minDocLength {
		badRequest(c, "requirement_doc 过短，至少需要10个字符")
		return
	}

	task := s.registry.Create(types.KindExtractModules)
	s.metrics.TaskCreated(string(task.Kind))

	go s.extraction.Run(context.Background(), task.ID, req.RequirementDoc)

	c.JSON(http.StatusOK, asyncResponse{
		TaskID:   task.ID,
		TaskType: task.Kind,
		Status:   task.Status,
		Message:  "提取任务已创建，请轮询任务状态",
	})
}

// handleGenerateAsync POST /api/v1/test-cases/generate-async
func (s *Server) handleGenerateAsync(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "requirement_doc 与 confirmed_function_points 为必填字段")
		return
	}
	if len([]rune(strings.TrimSpace(req.RequirementDoc))) < minDocLength {
		badRequest(c, "requirement_doc 过短，至少需要10个字符")
		return
	}
	if len(req.ConfirmedFunctionPoints) == 0 {
		badRequest(c, "confirmed_function_points 不能为空")
		return
	}
	for i, fp := range req.ConfirmedFunctionPoints {
		if strings.TrimSpace(fp.Name) == "" {
			badRequest(c, fmt.Sprintf("confirmed_function_points 中第%d个功能点缺少名称", i+1))
			return
		}
	}
	if req.MaxWorkers != 0 && (req.MaxWorkers < generation.MinWorkers || req.MaxWorkers > generation.MaxWorkers) {
		badRequest(c, "max_workers 取值范围为 1-8")
		return
	}
	if req.Limit != 0 && (req.Limit < 1 || req.Limit > maxLimit) {
		badRequest(c, "limit 取值范围为 1-50")
		return
	}

	task := s.registry.Create(types.KindGenerateTestCases)
	s.metrics.TaskCreated(string(task.Kind))

	go s.generation.Run(context.Background(), task.ID, req.RequirementDoc,
		req.ConfirmedFunctionPoints, req.MaxWorkers, req.Limit)

	c.JSON(http.StatusOK, asyncResponse{
		TaskID:   task.ID,
		TaskType: task.Kind,
		Status:   task.Status,
		Message:  "生成任务已创建，请轮询任务状态",
	})
}

// handleGetTask GET /api/v1/tasks/:id
func (s *Server) handleGetTask(c *gin.Context) {
	id := types.TaskID(c.Param("id"))
	task, err := s.registry.Get(id)
	if err != nil {
		if errors.Is(err, taskregistry.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

// handleRematch POST /api/v1/modules/rematch
// 同步執行：使用者修改功能點線索後，立即重新定位原文範圍
func (s *Server) handleRematch(c *gin.Context) {
	var req rematchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "requirement_doc 与 function_point 为必填字段")
		return
	}
	if strings.TrimSpace(req.FunctionPoint.Name) == "" {
		badRequest(c, "function_point 缺少名称")
		return
	}

	updated := matcher.Rematch(req.RequirementDoc, req.FunctionPoint, req.AllPoints)
	c.JSON(http.StatusOK, gin.H{
		"function_point": updated,
	})
}

// handleHealth GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"tasks":  s.registry.Stats(),
	})
}

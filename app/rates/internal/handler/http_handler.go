package handler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/metrics"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/model"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/service"
	"github.com/lk2023060901/xdooria-rates/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-rates/pkg/database/redis"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
	"github.com/lk2023060901/xdooria-rates/pkg/web"
	weberrors "github.com/lk2023060901/xdooria-rates/pkg/web/errors"
)

// HTTPHandler 宿主服务器调用的 HTTP 接口
type HTTPHandler struct {
	logger         logger.Logger
	svc            *service.RateService
	commands       *CommandHandler
	metrics        *metrics.RatesMetrics
	metricsHandler http.Handler
	dbStats        DBStats
	cacheStats     CacheStats
}

// DBStats 数据库连接池统计，*postgres.Client 满足该接口
type DBStats interface {
	Stats() *postgres.PoolStats
}

// CacheStats Redis 连接池统计，*redis.Client 满足该接口
type CacheStats interface {
	PoolStats() redis.PoolStats
}

// NewHTTPHandler 创建 HTTP 处理器，metricsHandler 为 nil 时不暴露 /metrics
func NewHTTPHandler(
	l logger.Logger,
	svc *service.RateService,
	commands *CommandHandler,
	m *metrics.RatesMetrics,
	metricsHandler http.Handler,
) *HTTPHandler {
	return &HTTPHandler{
		logger:         l.Named("handler.http"),
		svc:            svc,
		commands:       commands,
		metrics:        m,
		metricsHandler: metricsHandler,
	}
}

// LoginRequest 玩家上线
type LoginRequest struct {
	ID       int64  `json:"id" binding:"required,gt=0"`
	Name     string `json:"name"`
	Level    int32  `json:"level" binding:"gte=0"`
	Security uint8  `json:"security" binding:"lte=4"`
}

// LevelRequest 等级变化
type LevelRequest struct {
	Level int32 `json:"level" binding:"gte=0"`
}

// SelectionRequest 选中目标变化，target_id 为 0 表示取消选中
type SelectionRequest struct {
	TargetID int64 `json:"target_id" binding:"gte=0"`
}

// XPRequest 经验计算
type XPRequest struct {
	Base uint32 `json:"base"`
}

// CommandRequest 聊天命令
type CommandRequest struct {
	PlayerID int64  `json:"player_id" binding:"required,gt=0"`
	Text     string `json:"text" binding:"required"`
}

// XPResponse 经验计算结果
type XPResponse struct {
	PlayerID int64  `json:"player_id"`
	XPRate   uint32 `json:"xp_rate"`
	XP       uint64 `json:"xp"`
}

// StatsResponse 运行统计
type StatsResponse struct {
	OnlinePlayers int                 `json:"online_players"`
	Settings      *model.Settings     `json:"settings"`
	Runtime       metrics.Stats       `json:"runtime"`
	Database      *postgres.PoolStats `json:"database,omitempty"`
	Redis         *redis.PoolStats    `json:"redis,omitempty"`
}

// WithPoolStats 在 /v1/stats 中附带连接池统计，参数为 nil 时不输出对应项
func (h *HTTPHandler) WithPoolStats(db DBStats, cache CacheStats) *HTTPHandler {
	h.dbStats = db
	h.cacheStats = cache
	return h
}

// Register 注册路由
func (h *HTTPHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Health)
	if h.metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(h.metricsHandler))
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/players/login", h.Login)
		v1.POST("/players/:id/logout", h.Logout)
		v1.DELETE("/players/:id", h.Delete)
		v1.PUT("/players/:id/level", h.UpdateLevel)
		v1.PUT("/players/:id/selection", h.Select)
		v1.GET("/players/:id/rate", h.GetRate)
		v1.POST("/players/:id/xp", h.ScaleXP)
		v1.POST("/commands", h.Command)
		v1.GET("/stats", h.Stats)
	}
}

// Health 健康检查
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Login 玩家上线，返回需要投递的聊天消息
func (h *HTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !web.BindAndValidate(c, &req) {
		return
	}

	msgs, err := h.svc.HandleLogin(c.Request.Context(), model.Player{
		ID:       req.ID,
		Name:     req.Name,
		Level:    req.Level,
		Security: model.SecurityLevel(req.Security),
	})
	if err != nil {
		h.logger.Error("login hooks failed", "player_id", req.ID, "error", err)
	}

	web.Success(c, msgs)
}

// Logout 玩家下线
func (h *HTTPHandler) Logout(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	if err := h.svc.HandleLogout(c.Request.Context(), id); err != nil {
		h.fail(c, id, err)
		return
	}
	web.Success(c, nil)
}

// Delete 角色删除
func (h *HTTPHandler) Delete(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	if err := h.svc.HandleDelete(c.Request.Context(), id); err != nil {
		h.fail(c, id, err)
		return
	}
	web.Success(c, nil)
}

// UpdateLevel 同步等级
func (h *HTTPHandler) UpdateLevel(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	var req LevelRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	if err := h.svc.UpdateLevel(id, req.Level); err != nil {
		h.fail(c, id, err)
		return
	}
	web.Success(c, nil)
}

// Select 同步选中目标
func (h *HTTPHandler) Select(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	var req SelectionRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Select(id, req.TargetID); err != nil {
		h.fail(c, id, err)
		return
	}
	web.Success(c, nil)
}

// GetRate 查询当前生效的倍率
func (h *HTTPHandler) GetRate(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	rate, err := h.svc.CurrentRate(id)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	web.Success(c, model.CustomXPRate{PlayerID: id, XPRate: rate})
}

// ScaleXP 按倍率计算获得的经验
func (h *HTTPHandler) ScaleXP(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	var req XPRequest
	if !web.BindAndValidate(c, &req) {
		return
	}

	rate, xp, err := h.svc.ScaleXP(id, req.Base)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	web.Success(c, XPResponse{PlayerID: id, XPRate: rate, XP: xp})
}

// Command 执行聊天命令
func (h *HTTPHandler) Command(c *gin.Context) {
	var req CommandRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	web.Success(c, h.commands.Execute(c.Request.Context(), req.PlayerID, req.Text))
}

// Stats 运行统计
func (h *HTTPHandler) Stats(c *gin.Context) {
	resp := StatsResponse{
		OnlinePlayers: h.svc.OnlineCount(),
		Settings:      h.svc.Settings(),
		Runtime:       h.metrics.GetStats(),
	}
	if h.dbStats != nil {
		resp.Database = h.dbStats.Stats()
	}
	if h.cacheStats != nil {
		stats := h.cacheStats.PoolStats()
		resp.Redis = &stats
	}
	web.Success(c, resp)
}

func (h *HTTPHandler) fail(c *gin.Context, playerID int64, err error) {
	if errors.Is(err, service.ErrNoSession) {
		web.Fail(c, weberrors.CodeNotFound, "player not online")
		return
	}

	h.logger.Error("request failed",
		"path", c.FullPath(),
		"player_id", playerID,
		"error", err,
	)
	web.Fail(c, weberrors.CodeInternalError, "internal error")
}

package calchttp

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"positionsizer/internal/analysis/visual"
	"positionsizer/internal/logger"
	"positionsizer/internal/service/calculator"
	"positionsizer/internal/session"
	"positionsizer/internal/sizing"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookie = "positionsizer_session"

var pageTemplateFuncs = template.FuncMap{
	"pct": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
}

func loadTemplates() (*template.Template, error) {
	return template.New("pages").Funcs(pageTemplateFuncs).ParseFS(templateFS, "templates/*.html")
}

type pageHandler struct {
	calc *calculator.Service
}

type pageData struct {
	Choices            sizing.Choices
	State              session.State
	Display            sizing.Display
	SelectedRisk       float64
	SelectedCommission string
	Notice             string
	NoticeLevel        string
}

func (h *pageHandler) Register(router *gin.Engine) {
	router.GET("/", h.handleIndex)
	router.POST("/calculate", h.handleCalculate)
	router.GET("/copy", h.handleCopy)
	router.GET("/chart", h.handleChart)
}

// currentSession loads the cookie session or opens a new one.
func (h *pageHandler) currentSession(c *gin.Context) session.State {
	if id, err := c.Cookie(sessionCookie); err == nil {
		if st, err := h.calc.Session(id); err == nil {
			return st
		}
	}
	st := h.calc.NewSession()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, st.ID, 0, "/", "", false, true)
	return st
}

func (h *pageHandler) render(c *gin.Context, st session.State, notice, level string) {
	choices := h.calc.Choices()
	data := pageData{
		Choices:            choices,
		State:              st,
		Display:            st.Display(),
		SelectedRisk:       st.Form.RiskPercent,
		SelectedCommission: st.Form.Commission,
		Notice:             notice,
		NoticeLevel:        level,
	}
	if data.SelectedRisk == 0 {
		data.SelectedRisk = choices.DefaultRisk
	}
	if data.SelectedCommission == "" {
		data.SelectedCommission = choices.DefaultCommission
	}
	c.HTML(http.StatusOK, "index.html", data)
}

func (h *pageHandler) handleIndex(c *gin.Context) {
	h.render(c, h.currentSession(c), "", "")
}

func (h *pageHandler) handleCalculate(c *gin.Context) {
	st := h.currentSession(c)
	risk, err := parseRiskText(c.PostForm("risk"))
	if err != nil {
		h.render(c, st, err.Error(), "error")
		return
	}
	form := session.Form{
		BalanceText:  c.PostForm("balance"),
		StopLossText: c.PostForm("stop_loss"),
		RiskPercent:  risk,
		Commission:   c.PostForm("commission"),
	}
	out, next, err := h.calc.Calculate(c.Request.Context(), st.ID, form)
	if err != nil {
		if next.ID == "" {
			logger.Errorf("[calc] page calculate session=%s: %v", st.ID, err)
			c.String(statusFor(err), err.Error())
			return
		}
		h.render(c, next, err.Error(), "error")
		return
	}
	h.render(c, next, "Position size "+out.Display.PositionSize, "success")
}

func (h *pageHandler) handleCopy(c *gin.Context) {
	st := h.currentSession(c)
	c.String(http.StatusOK, st.Result.CopyText())
}

func (h *pageHandler) handleChart(c *gin.Context) {
	st := h.currentSession(c)
	choices := h.calc.Choices()

	balanceText := strings.TrimSpace(c.DefaultQuery("balance", st.Form.BalanceText))
	balance, err := sizing.ParseAmount("balance", balanceText)
	if err != nil {
		abortWithError(c, err)
		return
	}
	risk := st.Form.RiskPercent
	if raw := c.Query("risk"); raw != "" {
		if risk, err = parseRiskText(raw); err != nil {
			abortWithError(c, err)
			return
		}
	}
	if risk == 0 {
		risk = choices.DefaultRisk
	}
	if err := choices.CheckRisk(risk); err != nil {
		abortWithError(c, err)
		return
	}
	from, err := queryFloat(c, "from", 0.5)
	if err != nil {
		abortWithError(c, err)
		return
	}
	to, err := queryFloat(c, "to", 5)
	if err != nil {
		abortWithError(c, err)
		return
	}
	step, err := queryFloat(c, "step", 0.25)
	if err != nil {
		abortWithError(c, err)
		return
	}
	curve, err := visual.BuildCurve(visual.CurveInput{
		Balance:     balance,
		RiskPercent: risk,
		From:        from,
		To:          to,
		Step:        step,
		Tiers:       choices.Commission,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := visual.Render(c.Writer, curve); err != nil {
		logger.Errorf("[api] render chart: %v", err)
	}
}

func queryFloat(c *gin.Context, key string, def float64) (float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	return sizing.ParseAmount(key, raw)
}

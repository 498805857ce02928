package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/console/handler"
	"github.com/xela07ax/integra-gate/internal/console/service"
	"github.com/xela07ax/integra-gate/internal/infra"
	"github.com/xela07ax/integra-gate/internal/infra/auth"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Интерфейс для проверки токенов (RS256)
	// Реализуется через embedding BaseValidator в VehicleService
	authValidator auth.TokenValidator

	// Обработчики бизнес-доменов
	authHandler     *handler.AuthHandler      // /auth/token
	identityHandler *handler.IdentityHandler  // /v1/identities
	vehicleHandler  *handler.VehicleHandler   // /v1/vehicles
	accessHandler   *handler.AccessHandler    // /v1/access (история)
	dashHandler     *handler.DashboardHandler // /api/v1/dashboard
}

// NewConsoleServer инициализирует сервер админки со всеми зависимостями
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	vehicleService *service.VehicleService,
	authH *handler.AuthHandler,
	identityH *handler.IdentityHandler,
	vehicleH *handler.VehicleHandler,
	accessH *handler.AccessHandler,
	dashH *handler.DashboardHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("console-api"),
		cfg:             cfg,
		authValidator:   vehicleService,
		authHandler:     authH,
		identityHandler: identityH,
		vehicleHandler:  vehicleH,
		accessHandler:   accessH,
		dashHandler:     dashH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.authHandler.Login)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		// Подключаем универсальный Middleware только для этой группы
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		// Dashboard & Stats
		r.Get("/api/v1/dashboard/stats", s.dashHandler.GetStats)

		// Регистрация людей и управление моделью
		r.Route("/v1/identities", func(r chi.Router) {
			r.Get("/", s.identityHandler.List)        // Справочник зарегистрированных
			r.Post("/", s.identityHandler.Enroll)     // Регистрация + сбор образцов + обучение
			r.Post("/retrain", s.identityHandler.Retrain) // Переобучение без новой регистрации
		})

		// Реестр транспорта
		r.Route("/v1/vehicles", func(r chi.Router) {
			r.Get("/", s.vehicleHandler.List)
			r.Post("/", s.vehicleHandler.Register)          // Дубликат -> success=false
			r.Delete("/{plate}", s.vehicleHandler.Remove)
		})

		// История проходов (фильтры в query)
		r.Get("/v1/access", s.accessHandler.GetHistory)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

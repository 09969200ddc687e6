package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"portfolio-tracker/config"
	"portfolio-tracker/handlers"
	"portfolio-tracker/middleware"
	"portfolio-tracker/models"
	"portfolio-tracker/quotes"
	"portfolio-tracker/refresh"
	"portfolio-tracker/scheduler"
	"portfolio-tracker/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded:", err)
	}

	cfg := config.Load()
	markets, err := config.LoadMarkets(cfg.MarketsFile)
	if err != nil {
		log.Fatal("load markets:", err)
	}

	db, err := config.OpenDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("get database instance:", err)
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(&models.Holding{}, &models.Baseline{}, &models.QuoteRecord{}); err != nil {
		log.Fatal("migrate models:", err)
	}

	rdb, err := config.OpenRedis(cfg)
	if err != nil {
		log.Fatal(err)
	}

	fetcher := quotes.NewCachedFetcher(
		quotes.NewYahooFetcher(),
		&quotes.RedisCache{Client: rdb},
		cfg.QuoteCacheTTL,
	)
	st := store.New(db)
	orch := refresh.NewOrchestrator(fetcher, st, markets, cfg.RefreshWorkers)

	sched := scheduler.New(orch, st, markets)
	if err := sched.Register(cfg.RefreshCron); err != nil {
		log.Fatal(err)
	}
	sched.Start()
	defer sched.Stop()

	h := &handlers.Handler{
		Store:   st,
		Refresh: orch,
		Fetcher: fetcher,
		Markets: markets,
	}

	router := gin.Default()
	api := router.Group("/markets/:market")
	api.Use(middleware.OwnerID())
	{
		api.GET("/holdings", h.ListHoldings)
		api.POST("/holdings", h.AddHolding)
		api.GET("/holdings/:symbol", h.GetHolding)
		api.PUT("/holdings/:symbol", h.UpdateHolding)
		api.DELETE("/holdings/:symbol", h.DeleteHolding)
		api.GET("/portfolio", h.GetPortfolio)
		api.GET("/baseline", h.GetBaseline)
		api.PUT("/baseline", h.SetBaseline)
		api.GET("/index/:symbol", h.GetIndexQuote)
	}

	router.Run(":" + cfg.Port)
}

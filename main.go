package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"CAMPUS-backend/docs"
	"CAMPUS-backend/internal/attendance/justifications"
	"CAMPUS-backend/internal/attendance/reports"
	"CAMPUS-backend/internal/attendance/sheets"
	"CAMPUS-backend/internal/catalog"
	"CAMPUS-backend/internal/evidence"
	"CAMPUS-backend/internal/platform/auth"
	"CAMPUS-backend/internal/platform/db"
)

// @title CAMPUS attendance API
// @version 2.0
// @description 出欠シート・欠席事由申請の管理API
// @BasePath /api/v2

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	// 動作モード取得
	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	secret := []byte(cfg.JWT.Secret)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	if mode == "dev" {
		docs.SwaggerInfo.BasePath = "/api/v2"
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// サービス組み立て
	catalogSvc := catalog.NewService(catalog.NewStore(conn))
	sheetSvc := sheets.NewService(sheets.NewStore(conn), catalogSvc)
	justificationSvc := justifications.NewService(justifications.NewStore(conn))
	reportSvc := reports.NewService(reports.NewStore(conn))
	evidenceSvc := evidence.NewService(evidence.NewStore(conn), cfg.Evidence.Dir)
	authSvc := auth.NewService(conn, secret)

	// /api/v2
	api := r.Group("/api/v2")
	auth.RegisterRoutes(api, authSvc)

	authed := api.Group("")
	authed.Use(auth.RequireAuth(secret))

	// 名簿・マスタ管理はadmin/teacherのみ
	admin := authed.Group("")
	admin.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleTeacher))
	catalog.RegisterRoutes(admin, catalogSvc)

	att := authed.Group("/attendance")
	marking := att.Group("")
	marking.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleTeacher))
	sheets.NewHandler(sheetSvc).RegisterRoutes(marking)

	// 申請は全ロール、判定はreviewer/adminのみ
	justifications.NewHandler(justificationSvc).RegisterRoutes(att,
		auth.RequireRole(auth.RoleAdmin, auth.RoleReviewer))

	reporting := att.Group("")
	reporting.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleTeacher, auth.RoleReviewer))
	reports.NewHandler(reportSvc).RegisterRoutes(reporting)

	evidence.NewHandler(evidenceSvc).RegisterRoutes(authed)

	// TLS起動
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: r,
	}

	var certFile, keyFile string

	// TLS設定
	if mode == "dev" {
		//開発用
		certFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Key)
	} else {
		//本番用
		certFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Key)
	}

	go func() {
		log.Printf("[INFO] listening on https://0.0.0.0%s", cfg.Listen)
		if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}

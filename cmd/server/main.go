package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ianpurifying/SE1project-IRNVault/internal/config"
	"github.com/ianpurifying/SE1project-IRNVault/internal/database"
	"github.com/ianpurifying/SE1project-IRNVault/internal/handlers"
	mW "github.com/ianpurifying/SE1project-IRNVault/internal/middleware"
	"github.com/ianpurifying/SE1project-IRNVault/internal/services"
)

func main() {
	config.Init()

	serverCfg := config.LoadServer()
	jwtCfg := config.LoadJWT()
	argonCfg := config.LoadArgon2()
	loanPolicy := config.LoadLoanPolicy()

	db := database.InitDatabase(config.LoadDatabase())
	defer db.Close()

	redisClient := database.InitRedis(config.LoadRedis())
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Core services
	ledgerService := services.NewLedgerService(db, loanPolicy.TreasuryAccount)
	transactionService := services.NewTransactionService(db, ledgerService)
	loanService := services.NewLoanService(db, ledgerService, loanPolicy)
	authService := services.NewAuthService(db, redisClient, ledgerService, jwtCfg, argonCfg)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	accountHandler := handlers.NewAccountHandler(ledgerService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	loanHandler := handlers.NewLoanHandler(loanService)
	adminHandler := handlers.NewAdminHandler(ledgerService, loanService)

	mW.InitAuthMiddleware(jwtCfg, redisClient)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(mW.Auth)

			r.Get("/accounts/balance", accountHandler.Balance)
			r.Get("/accounts/transactions", accountHandler.Transactions)
			r.Get("/accounts/reconcile", accountHandler.Reconcile)

			r.Post("/transactions/deposit", transactionHandler.Deposit)
			r.Post("/transactions/withdraw", transactionHandler.Withdraw)
			r.Post("/transactions/transfer", transactionHandler.Transfer)

			r.Post("/loans/apply", loanHandler.Apply)
			r.Get("/loans", loanHandler.ActiveLoans)
			r.Get("/loans/applications", loanHandler.Applications)
			r.Post("/loans/{loanId}/payments", loanHandler.MakePayment)
			r.Post("/loans/{loanId}/payoff", loanHandler.Payoff)
			r.Get("/loans/{loanId}/payments", loanHandler.PaymentHistory)

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.AdminOnly(loanPolicy.TreasuryAccount))

				r.Get("/admin/accounts", adminHandler.Accounts)
				r.Get("/admin/accounts/pending", adminHandler.PendingAccounts)
				r.Post("/admin/accounts/{accountNumber}/approve", adminHandler.ApproveAccount)
				r.Post("/admin/accounts/{accountNumber}/decline", adminHandler.DeclineAccount)
				r.Get("/admin/accounts/{accountNumber}/reconcile", adminHandler.ReconcileAccount)

				r.Get("/admin/loans/pending", adminHandler.PendingLoans)
				r.Get("/admin/loans/active", adminHandler.ActiveLoans)
				r.Post("/admin/loans/applications/{applicationId}/approve", adminHandler.ApproveLoan)
				r.Post("/admin/loans/applications/{applicationId}/reject", adminHandler.RejectLoan)
				r.Post("/admin/loans/{loanId}/default", adminHandler.MarkDefaulted)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + serverCfg.Port,
		Handler:      r,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  serverCfg.IdleTimeout,
	}

	go func() {
		log.Printf("Server starting on :%s", serverCfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}

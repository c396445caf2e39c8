package routes

import (
	"github.com/Templasan/MarketPlacer/controllers"
	"github.com/Templasan/MarketPlacer/middleware"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Products *controllers.ProductController
	Carts    *controllers.CartController
	Orders   *controllers.OrderController
	Users    *controllers.UserController
	Home     *controllers.HomeController
}

// RegisterRoutes mounts the whole API under /api. Routes that act on behalf of
// the caller also require the account to still be active.
func RegisterRoutes(r *gin.Engine, c Controllers, tokens middleware.TokenParser, users middleware.ActiveUserChecker) {
	api := r.Group("/api")
	authed := middleware.AuthMiddleware(tokens)
	active := middleware.RequireActiveUser(users)

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", c.Users.Register)
		authRoutes.POST("/login", c.Users.Login)
		authRoutes.POST("/logout", c.Users.Logout)
		authRoutes.GET("/me", authed, active, c.Users.GetMe)
	}

	userRoutes := api.Group("/users", authed, active)
	{
		userRoutes.GET("/:id", c.Users.GetUser)
		userRoutes.PUT("/:id", c.Users.UpdateUser)
		userRoutes.DELETE("/:id", c.Users.DeactivateUser)
		userRoutes.PUT("/:id/password", c.Users.ChangePassword)
	}

	productRoutes := api.Group("/products")
	{
		productRoutes.GET("", c.Products.SearchProducts)
		productRoutes.GET("/categories", c.Products.Categories)
		productRoutes.GET("/mine", authed, active, middleware.RequireRole(models.RoleVendedor, models.RoleAdmin), c.Products.MyProducts)
		productRoutes.GET("/:id", c.Products.GetProduct)
		productRoutes.POST("", authed, active, c.Products.CreateProduct)
		productRoutes.PUT("/:id", authed, active, c.Products.UpdateProduct)
		productRoutes.DELETE("/:id", authed, active, c.Products.DeleteProduct)
		productRoutes.PATCH("/:id/stock", authed, active, middleware.AdminOnly(), c.Products.AdjustStock)
		productRoutes.POST("/:id/image-url", authed, active, c.Products.ImageUploadURL)
	}

	homeRoutes := api.Group("/home")
	{
		homeRoutes.GET("", c.Home.GetHome)
		homeRoutes.DELETE("/cache", authed, active, middleware.AdminOnly(), c.Home.ClearCache)
	}

	cartRoutes := api.Group("/cart", authed, active)
	{
		cartRoutes.GET("", c.Carts.GetCart)
		cartRoutes.DELETE("", c.Carts.ClearCart)
		cartRoutes.POST("/items", c.Carts.AddItem)
		cartRoutes.PUT("/items/:productId", c.Carts.UpdateItem)
		cartRoutes.DELETE("/items/:productId", c.Carts.RemoveItem)
		cartRoutes.POST("/checkout", c.Carts.Checkout)
	}

	orderRoutes := api.Group("/orders", authed, active)
	{
		orderRoutes.POST("", c.Orders.CreateOrder)
		orderRoutes.GET("", c.Orders.GetOrders)
		orderRoutes.GET("/seller", c.Orders.GetSellerOrders)
		orderRoutes.GET("/all", middleware.AdminOnly(), c.Orders.GetAllOrders)
		orderRoutes.GET("/:id", c.Orders.GetOrderByID)
		orderRoutes.POST("/:id/pay", c.Orders.PayOrder)
		orderRoutes.PATCH("/:id/status", c.Orders.UpdateStatus)
		orderRoutes.GET("/:id/history", c.Orders.GetHistory)
	}
}

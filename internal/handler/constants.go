package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteSuffixNew is the suffix for "new" routes.
	RouteSuffixNew = "/new"
	// RouteSuffixUpload is the suffix for upload routes.
	RouteSuffixUpload = "/upload"

	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteParamSlug is the slug parameter pattern.
	RouteParamSlug = "/{slug}"

	// RouteLogin is the login route.
	RouteLogin = "/auth/login"
	// RouteLogout is the logout route.
	RouteLogout = "/auth/logout"
	// RouteBlog is the blog index route.
	RouteBlog = "/blog"
	// RouteBlogPage is the blog pagination route pattern.
	RouteBlogPage = "/blog/page/{page}"
	// RouteBlogSlug is the single article route pattern.
	RouteBlogSlug = RouteBlog + RouteParamSlug

	// RouteDashboard is the dashboard admin route.
	RouteDashboard = "/dashboard"
	// RouteArticles is the articles admin route.
	RouteArticles = "/articles"
	// RouteMedia is the media admin route.
	RouteMedia = "/media"
	// RouteUsers is the users admin route.
	RouteUsers = "/users"
	// RouteSubscribers is the subscribers admin route.
	RouteSubscribers = "/subscribers"
	// RouteSettings is the settings admin route.
	RouteSettings = "/settings"
	// RouteProfile is the profile admin route.
	RouteProfile = "/profile"

	// RouteArticlesID is the articles ID route pattern.
	RouteArticlesID = RouteArticles + RouteParamID
	// RouteMediaID is the media ID route pattern.
	RouteMediaID = RouteMedia + RouteParamID
	// RouteUsersID is the users ID route pattern.
	RouteUsersID = RouteUsers + RouteParamID
	// RouteSubscribersID is the subscribers ID route pattern.
	RouteSubscribersID = RouteSubscribers + RouteParamID
)

const (
	redirectAdmin            = "/admin"
	redirectAdminArticles    = redirectAdmin + RouteArticles
	redirectAdminArticlesNew = redirectAdminArticles + RouteSuffixNew
	redirectAdminMedia       = redirectAdmin + RouteMedia
	redirectAdminMediaUpload = redirectAdminMedia + RouteSuffixUpload
	redirectAdminUsers       = redirectAdmin + RouteUsers
	redirectAdminUsersNew    = redirectAdminUsers + RouteSuffixNew
	redirectAdminSubscribers = redirectAdmin + RouteSubscribers
	redirectAdminSettings    = redirectAdmin + RouteSettings
	redirectAdminProfile     = redirectAdmin + RouteProfile
	redirectLogin            = RouteLogin

	redirectAdminArticlesID = redirectAdminArticles + "/%d"
	redirectAdminMediaID    = redirectAdminMedia + "/%d"
	redirectAdminUsersID    = redirectAdminUsers + "/%d"
)
